package models

// WorkOrderToken is the decoded claim set of a signed work-order JWS. It
// authorizes one user to act on one file in one direction.
type WorkOrderToken struct {
	Type                  string `json:"type" validate:"required,oneof=download upload"`
	FileID                string `json:"file_id" validate:"required"`
	UserID                string `json:"user_id" validate:"required"`
	FullUserName          string `json:"full_user_name" validate:"required"`
	Email                 string `json:"email" validate:"required,email"`
	UserPublicCrypt4ghKey string `json:"user_public_crypt4gh_key" validate:"required,base64"`
}

// IsDownloadFor reports whether the token authorizes a download for the
// given file_id. Any other type, or a file_id mismatch, means the token
// does not speak for this request.
func (t WorkOrderToken) IsDownloadFor(fileID string) bool {
	return t.Type == "download" && t.FileID == fileID
}
