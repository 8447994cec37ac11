package app

import (
	"gorm.io/gorm"

	"github.com/clawbackhq/clawback-backend/internal/data/repos"
	"github.com/clawbackhq/clawback-backend/internal/platform/logger"
)

type Repos struct {
	Sellers     repos.SellerAccountRepo
	Claims      repos.ClaimRepo
	Transitions repos.TransitionLogRepo
	Progress    repos.SyncProgressRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	return Repos{
		Sellers:     repos.NewSellerAccountRepo(db, log),
		Claims:      repos.NewClaimRepo(db, log),
		Transitions: repos.NewTransitionLogRepo(db, log),
		Progress:    repos.NewSyncProgressRepo(db, log),
	}
}
