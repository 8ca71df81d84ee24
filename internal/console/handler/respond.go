package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/xela07ax/spaceai-console/internal/entity"
)

// Ни одна сущность консоли не приближается к этому размеру
const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Заголовки уже ушли, ошибку записи (обычно обрыв клиента) сообщить некуда
	_ = json.NewEncoder(w).Encode(v)
}

// writeError переводит ошибки хранилища в HTTP коды
func writeError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: "request body too large"})
	case errors.Is(err, entity.ErrInvalid),
		errors.Is(err, entity.ErrInvalidStatus),
		errors.Is(err, entity.ErrUnknownAction):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, entity.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	default:
		// Детали 500-ок не отдаем, они уже в логе сервиса
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.Join(entity.ErrInvalid, err)
	}
	return nil
}
