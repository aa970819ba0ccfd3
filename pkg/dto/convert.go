package dto

type ConvertRequest struct {
	AudioURL string `json:"audioUrl"`
	VideoURL string `json:"videoUrl"`
	Title    string `json:"title"`
	VideoID  string `json:"vId"`
	Quality  string `json:"vq"`
}

type ConvertResponse struct {
	DownloadURL string `json:"downloadUrl"`
	Cached      bool   `json:"cached"`
}
