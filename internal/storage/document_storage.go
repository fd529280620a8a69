package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/h2non/filetype"
)

// HeaderSize — сколько байт начала файла нужно для определения типа.
const HeaderSize = 8192

// Поддерживаемые MIME типы документов.
const (
	MimePDF  = "application/pdf"
	MimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MimeRTF  = "application/rtf"
)

var (
	// ErrFileTooLarge возвращается, когда файл превышает лимит.
	ErrFileTooLarge = errors.New("storage: размер файла превышает лимит")
	// ErrUnsupportedType возвращается для файлов, не являющихся PDF, DOCX или RTF.
	ErrUnsupportedType = errors.New("storage: неподдерживаемый тип файла")
)

var allowedExtensions = map[string]string{
	".pdf":  MimePDF,
	".docx": MimeDOCX,
	".rtf":  MimeRTF,
}

// DetectDocumentType проверяет расширение и магические байты файла.
// DOCX является zip архивом, поэтому zip принимается только с расширением .docx.
func DetectDocumentType(head []byte, filename string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	expected, ok := allowedExtensions[ext]
	if !ok {
		return "", fmt.Errorf("%w: расширение %q", ErrUnsupportedType, ext)
	}

	kind, err := filetype.Match(head)
	if err != nil || kind == filetype.Unknown {
		return "", fmt.Errorf("%w: не удалось определить тип", ErrUnsupportedType)
	}

	mime := kind.MIME.Value
	if mime == "application/zip" && expected == MimeDOCX {
		mime = MimeDOCX
	}
	if mime == "text/rtf" {
		mime = MimeRTF
	}
	if mime != expected {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, mime)
	}

	return mime, nil
}

// DocumentStorage отвечает за файловое хранилище CV и мотивационных писем.
type DocumentStorage struct {
	rootPath       string
	maxUploadBytes int64
}

// NewDocumentStorage создаёт файловое хранилище.
func NewDocumentStorage(rootPath string, maxUploadMB int64) (*DocumentStorage, error) {
	if err := os.MkdirAll(rootPath, 0o755); err != nil {
		return nil, fmt.Errorf("storage: не удалось создать каталог %s: %w", rootPath, err)
	}

	return &DocumentStorage{
		rootPath:       rootPath,
		maxUploadBytes: maxUploadMB * 1024 * 1024,
	}, nil
}

// MaxUploadBytes возвращает лимит размера файла.
func (s *DocumentStorage) MaxUploadBytes() int64 {
	return s.maxUploadBytes
}

// Save сохраняет файл и возвращает путь относительно корня хранилища.
func (s *DocumentStorage) Save(ctx context.Context, userID uuid.UUID, kind, originalName string, r io.Reader) (string, int64, error) {
	if err := ctx.Err(); err != nil {
		return "", 0, err
	}

	safeName := sanitizeFilename(originalName)
	fileName := fmt.Sprintf("%s_%d%s", kind, time.Now().UnixNano(), strings.ToLower(filepath.Ext(safeName)))

	userDir := filepath.Join(s.rootPath, userID.String())
	if err := os.MkdirAll(userDir, 0o755); err != nil {
		return "", 0, fmt.Errorf("storage: не удалось создать каталог пользователя: %w", err)
	}

	targetPath := filepath.Join(userDir, fileName)
	tempPath := targetPath + ".tmp"

	f, err := os.Create(tempPath)
	if err != nil {
		return "", 0, fmt.Errorf("storage: не удалось создать файл: %w", err)
	}
	defer f.Close()

	limited := io.LimitedReader{R: r, N: s.maxUploadBytes + 1}
	written, err := io.Copy(f, &limited)
	if err != nil {
		_ = os.Remove(tempPath)
		return "", 0, fmt.Errorf("storage: ошибка записи файла: %w", err)
	}

	if written > s.maxUploadBytes {
		_ = os.Remove(tempPath)
		return "", 0, fmt.Errorf("%w: %d байт", ErrFileTooLarge, s.maxUploadBytes)
	}

	if err := f.Close(); err != nil {
		_ = os.Remove(tempPath)
		return "", 0, fmt.Errorf("storage: ошибка закрытия файла: %w", err)
	}

	if err := os.Rename(tempPath, targetPath); err != nil {
		return "", 0, fmt.Errorf("storage: не удалось переименовать файл: %w", err)
	}

	return filepath.Join(userID.String(), fileName), written, nil
}

// Open открывает сохранённый файл для чтения.
func (s *DocumentStorage) Open(ctx context.Context, relativePath string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	target, err := s.resolve(relativePath)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(target)
	if err != nil {
		return nil, fmt.Errorf("storage: не удалось открыть файл: %w", err)
	}
	return f, nil
}

// Delete удаляет файл из хранилища. Отсутствующий файл не ошибка.
func (s *DocumentStorage) Delete(ctx context.Context, relativePath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	target, err := s.resolve(relativePath)
	if err != nil {
		return err
	}

	if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("storage: не удалось удалить файл: %w", err)
	}
	return nil
}

func (s *DocumentStorage) resolve(relativePath string) (string, error) {
	target := filepath.Join(s.rootPath, relativePath)
	rel, err := filepath.Rel(s.rootPath, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("storage: путь вне хранилища: %s", relativePath)
	}
	return target, nil
}

// sanitizeFilename удаляет потенциально опасные символы.
func sanitizeFilename(name string) string {
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, "..", "")
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	if name == "" || name == "." {
		name = "document"
	}
	return name
}
