package response

import (
	"encoding/json"
	"net/http"
)

type RESTEnvelope struct {
	Status  string      `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
	Meta    interface{} `json:"meta"`
	Errors  []string    `json:"errors,omitempty"`
}

type PaginationMeta struct {
	Page      int64 `json:"page"`
	Size      int64 `json:"size"`
	TotalData int64 `json:"total_data"`
	TotalPage int64 `json:"total_page"`
}

func JSON(w http.ResponseWriter, httpStatusCode int, envelope RESTEnvelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatusCode)
	json.NewEncoder(w).Encode(envelope)
}
