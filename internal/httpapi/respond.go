package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"sort"
	"strconv"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

type messageResponse struct {
	Message string `json:"message"`
}

type validationResponse struct {
	Message string              `json:"message"`
	Errors  map[string][]string `json:"errors"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, messageResponse{Message: message})
}

// writeError переводит доменную ошибку в HTTP-ответ. Неизвестные ошибки
// логируются и отдаются как 500 без подробностей.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validation *domain.ValidationError
		conflict   *domain.ConflictError
		notFound   *domain.NotFoundError
		state      *domain.StateError
	)

	switch {
	case errors.As(err, &validation):
		writeJSON(w, http.StatusUnprocessableEntity, validationBody(validation.Fields))
	case errors.As(err, &conflict):
		writeJSON(w, http.StatusUnprocessableEntity, validationBody(map[string][]string{
			conflict.Field: {conflict.Message},
		}))
	case errors.As(err, &notFound):
		writeMessage(w, http.StatusNotFound, notFound.Error())
	case errors.As(err, &state):
		writeMessage(w, http.StatusBadRequest, state.Error())
	default:
		requestLogger(r, s.logger).WithError(err).Error("request failed")
		writeMessage(w, http.StatusInternalServerError, "Internal server error.")
	}
}

// validationBody строит ответ 422: первое сообщение и число остальных ошибок.
func validationBody(fields map[string][]string) validationResponse {
	keys := make([]string, 0, len(fields))
	total := 0
	for key, messages := range fields {
		keys = append(keys, key)
		total += len(messages)
	}
	sort.Strings(keys)

	message := "The given data was invalid."
	if len(keys) > 0 && len(fields[keys[0]]) > 0 {
		message = fields[keys[0]][0]
	}
	switch rest := total - 1; {
	case rest == 1:
		message += " (and 1 more error)"
	case rest > 1:
		message += fmt.Sprintf(" (and %d more errors)", rest)
	}

	return validationResponse{Message: message, Errors: fields}
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// withID разбирает {id} из пути; некорректный id отвечает 404 от имени сущности.
func (s *Server) withID(w http.ResponseWriter, r *http.Request, entity domain.Entity) (int64, bool) {
	id, ok := pathID(r)
	if !ok {
		writeMessage(w, http.StatusNotFound, domain.NotFound(entity, 0).Error())
	}
	return id, ok
}

func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return nil
	}
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxJSONBody))
	err := dec.Decode(dst)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}

	// Синтаксически верный JSON с неверным типом поля — ошибка валидации поля.
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		verr := domain.NewValidationError()
		verr.Add(typeErr.Field, fmt.Sprintf("The %s field must be %s.", typeErr.Field, expectedKind(typeErr.Type)))
		return verr
	}
	return err
}

func expectedKind(t reflect.Type) string {
	if t == nil {
		return "a valid value"
	}
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "an integer"
	case reflect.Float32, reflect.Float64:
		return "a number"
	case reflect.String:
		return "a string"
	case reflect.Bool:
		return "true or false"
	case reflect.Slice, reflect.Array:
		return "an array"
	case reflect.Struct, reflect.Map:
		return "an object"
	default:
		return "a valid value"
	}
}

const maxJSONBody = 1 << 20

// badJSON отвечает 400 на неразбираемое тело; ошибки типов полей уходят в 422.
func (s *Server) badJSON(w http.ResponseWriter, r *http.Request, err error) {
	var validation *domain.ValidationError
	if errors.As(err, &validation) {
		s.writeError(w, r, validation)
		return
	}
	requestLogger(r, s.logger).WithError(err).Debug("malformed json body")
	writeMessage(w, http.StatusBadRequest, "Malformed JSON body.")
}

func requestLogger(r *http.Request, fallback *log.Entry) *log.Entry {
	if entry, ok := r.Context().Value(loggerKey{}).(*log.Entry); ok {
		return entry
	}
	return fallback
}
