package http

import (
	"context"

	"scorecli/internal/services"
	"scorecli/pkg/contracts/domain"
)

// ScoreServiceInterface is the read side the score handler needs
type ScoreServiceInterface interface {
	ListFiles(ctx context.Context) ([]services.FileInfo, error)
	GetSheet(ctx context.Context, category, sheet string, from, to domain.DateKey) (*services.SheetView, error)
	GetEntity(ctx context.Context, category, sheet, code string) (*services.EntityView, error)
}
