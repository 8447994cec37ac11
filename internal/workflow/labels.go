package workflow

var phaseLabels = map[int]string{
	1: "Account Connection",
	2: "Data Sync",
	3: "Claim Detection",
	4: "Evidence Matching",
	5: "Claim Submission",
	6: "Rejection Feedback",
	7: "Payout Reconciliation",
}

// RequiredMetadata lists the metadata fields each phase needs. The HTTP
// boundary validates these; handlers assume they are present.
var RequiredMetadata = map[int][]string{
	1: {"sellerId"},
	2: {"ordersCount", "inventoryItems"},
	3: {"claims"},
	4: {"matches"},
	5: {"claimId", "providerCaseId"},
	6: {"claimId", "rejectionReason", "providerCaseId"},
	7: {"claimId", "amount", "providerCaseId"},
}

func Label(phase int) string {
	if l, ok := phaseLabels[phase]; ok {
		return l
	}
	return "Unknown"
}
