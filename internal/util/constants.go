package util

const (
	StorageLocal = "local"
	StorageMinio = "minio"
)

const (
	MimeImage = "image/"
	MimePDF   = "application/pdf"
)

var (
	AllowedAssetExtensions = []string{".png", ".jpg", ".jpeg", ".gif", ".webp", ".svg", ".pdf"}
)
