package dto

type RecordReadingRequest struct {
	RevealedFuture bool `json:"revealed_future"`
}

type RecordQuestionRequest struct {
	Question string   `json:"question" validate:"required"`
	Response string   `json:"response"`
	Cards    []string `json:"cards" validate:"max=10"`
}
