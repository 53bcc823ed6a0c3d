package backend

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"reviewverso/internal/apierror"
)

// MaxAvatarBytes caps profile image uploads.
const MaxAvatarBytes = 5 << 20

var avatarTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// Upload is a file received from the client before it is forwarded.
type Upload struct {
	Name string
	Data []byte
}

// AvatarFile validates an avatar by content sniffing and returns it as the
// "avatar" multipart part. The declared filename is not trusted for the type.
func AvatarFile(u Upload) (File, error) {
	if len(u.Data) == 0 {
		return File{}, apierror.Invalid("avatar", "La imagen de perfil está vacía")
	}
	if len(u.Data) > MaxAvatarBytes {
		return File{}, apierror.Invalid("avatar", fmt.Sprintf("La imagen de perfil supera %d MB", MaxAvatarBytes>>20))
	}
	mt := mimetype.Detect(u.Data)
	contentType := strings.SplitN(mt.String(), ";", 2)[0]
	ext, ok := avatarTypes[contentType]
	if !ok {
		return File{}, apierror.Invalid("avatar", "Formato de imagen no admitido (usa JPG, PNG, WEBP o GIF)")
	}
	name := strings.TrimSuffix(filepath.Base(strings.TrimSpace(u.Name)), filepath.Ext(u.Name))
	if name == "" || name == "." || name == "/" {
		name = "avatar"
	}
	return File{
		Field:       "avatar",
		Name:        name + ext,
		ContentType: contentType,
		Data:        u.Data,
	}, nil
}
