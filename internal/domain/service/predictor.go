package service

import (
	"context"

	"GoldPredict/internal/domain/models"
)

// Predictor requests a gold price forecast for the submitted market inputs.
type Predictor interface {
	Predict(ctx context.Context, values models.FormValues) (float64, error)
}

// GenericErrorMessage is shown when a failed submission carries no detail.
const GenericErrorMessage = "Unexpected error occurred"

// MessageError is an error carrying a message fit for display.
type MessageError interface {
	error
	Message() string
}
