package homework

import "fmt"

// Error taxonomy for one poll cycle. Each stage of the cycle raises exactly
// one of these kinds; the cycle boundary catches them all and converts them
// to a deduplicated error notification.

// APIError is a transport failure or a non-success HTTP status from the
// status-tracking API.
type APIError struct {
	Detail string
	Err    error
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("ошибка при запросе к API: %s: %v", e.Detail, e.Err)
	}
	return fmt.Sprintf("ошибка при запросе к API: %s", e.Detail)
}

func (e *APIError) Unwrap() error { return e.Err }

// MalformedResponseError is a payload of the wrong structural shape
// (non-object top level, non-list homeworks field, undecodable body).
type MalformedResponseError struct {
	Reason string
}

func (e *MalformedResponseError) Error() string {
	return "некорректный ответ API: " + e.Reason
}

// MissingFieldError is a required key absent from the payload or a record.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("отсутствует ключ %q в ответе API", e.Field)
}

// UnknownVerdictError is a status code outside the recognized verdict set.
type UnknownVerdictError struct {
	Code string
}

func (e *UnknownVerdictError) Error() string {
	return fmt.Sprintf("неизвестный статус работы: %q", e.Code)
}
