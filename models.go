package workbenchbridge

import "encoding/json"

// ServerConfig is the static configuration document served at /config.json.
type ServerConfig struct {
	AppMode          string `json:"APP_MODE"`
	GitHubClientID   string `json:"GITHUB_CLIENT_ID"`
	PosthogClientKey string `json:"POSTHOG_CLIENT_KEY"`
}

// UploadFile is one file submitted to UploadFiles. RelativePath, when set,
// preserves directory structure on the server side; it falls back to Name.
type UploadFile struct {
	Name         string
	RelativePath string
	Content      []byte
}

func (f UploadFile) uploadName() string {
	if f.RelativePath != "" {
		return f.RelativePath
	}
	return f.Name
}

// UploadResult reports which files the server accepted or skipped.
type UploadResult struct {
	Message       string   `json:"message"`
	UploadedFiles []string `json:"uploaded_files"`
	SkippedFiles  []string `json:"skipped_files"`
}

// Feedback is a user feedback submission. Trajectory is passed through
// verbatim; the client does not interpret it.
type Feedback struct {
	Version     string          `json:"version"`
	Email       string          `json:"email"`
	Polarity    string          `json:"polarity"`
	Permissions string          `json:"permissions"`
	Trajectory  json.RawMessage `json:"trajectory,omitempty"`
}

// FeedbackResponse acknowledges a feedback submission.
type FeedbackResponse struct {
	Message    string `json:"message"`
	FeedbackID string `json:"feedback_id"`
	Link       string `json:"link,omitempty"`
}

type fileContent struct {
	Code string `json:"code"`
}

type saveFileRequest struct {
	FilePath string `json:"filePath"`
	Content  string `json:"content"`
}

type githubCallbackRequest struct {
	Code string `json:"code"`
}

type githubCallbackResponse struct {
	AccessToken string `json:"access_token"`
}
