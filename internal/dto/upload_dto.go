package dto

// UploadResponse describes a file stored in the blob store.
type UploadResponse struct {
	URL  string `json:"url"`
	Name string `json:"name"`
	Size int64  `json:"size"`
	Path string `json:"path"`
}
