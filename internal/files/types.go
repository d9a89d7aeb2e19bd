package files

import "time"

// File is an uploaded source document.
type File struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	Filename    string    `json:"filename"`
	FileType    string    `json:"file_type"`
	Size        int64     `json:"size"`
	StoragePath string    `json:"-"`
	Processed   bool      `json:"processed"`
	UploadTime  time.Time `json:"upload_time"`
}

// UpdateRequest renames a file.
type UpdateRequest struct {
	NewFilename string `json:"new_filename"`
}

// DefaultPerPage is the page size of List when none is given.
const DefaultPerPage = 10
