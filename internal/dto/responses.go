package dto

// ErrorResponse стандартный ответ с ошибкой.
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	Retryable bool   `json:"retryable,omitempty"`
}

// DataResponse ответ на переход workflow. Warnings содержит сбои внешних
// адаптеров, случившиеся после фиксации перехода.
type DataResponse struct {
	Data     any      `json:"data"`
	Warnings []string `json:"warnings"`
}

// NewDataResponse создаёт ответ; warnings всегда сериализуются массивом.
func NewDataResponse(data any, warnings []string) DataResponse {
	if warnings == nil {
		warnings = []string{}
	}
	return DataResponse{Data: data, Warnings: warnings}
}

// ListResponse постраничный список.
type ListResponse struct {
	Items  any `json:"items"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// PhotoUploadResponse результат загрузки фото для отметки о приходе.
type PhotoUploadResponse struct {
	Handle   string `json:"photo_handle"`
	Size     int64  `json:"size"`
	MimeType string `json:"mime_type"`
}

// UnreadCountResponse число непрочитанных уведомлений.
type UnreadCountResponse struct {
	Count int `json:"count"`
}
