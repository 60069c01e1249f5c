package dto

import (
	"optimizer.app/relay/internal/backend"
	"optimizer.app/relay/internal/pipeline"
)

type GenerateRequest struct {
	Question   string   `json:"question" binding:"required"`
	Language   string   `json:"language" binding:"required"`
	BackendIDs []string `json:"backend_ids" binding:"required,min=1,dive,required"`
	Classify   bool     `json:"classify"`
}

type GenerateResponse struct {
	RunID    int64                 `json:"run_id,string"`
	Language string                `json:"language"`
	Columns  []pipeline.Column     `json:"columns"`
	Chart    []pipeline.ChartPoint `json:"chart"`
}

func ToGenerateResponse(runID int64, language string, p pipeline.Presentation) *GenerateResponse {
	return &GenerateResponse{
		RunID:    runID,
		Language: language,
		Columns:  p.Columns,
		Chart:    p.Chart,
	}
}

type BackendResponse struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Model       string `json:"model"`
}

func ToBackendResponses(adapters []backend.Adapter) []BackendResponse {
	out := make([]BackendResponse, len(adapters))
	for i, a := range adapters {
		out[i] = BackendResponse{
			ID:          a.ID(),
			DisplayName: a.DisplayName(),
			Model:       a.Model(),
		}
	}
	return out
}

type LanguagesResponse struct {
	Languages []string `json:"languages"`
}
