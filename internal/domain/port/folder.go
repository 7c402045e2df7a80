package port

import "context"

// FolderSource чтение папки экспорта (локально, MinIO или range-сервер)
type FolderSource interface {
	// ListDirs имена подкаталогов
	ListDirs(ctx context.Context, dir string) ([]string, error)

	// ListFiles имена файлов каталога
	ListFiles(ctx context.Context, dir string) ([]string, error)

	// ReadFile содержимое файла
	ReadFile(ctx context.Context, name string) ([]byte, error)
}

// FolderSink запись папки экспорта
type FolderSink interface {
	// WriteFile записывает файл, создавая промежуточные каталоги
	WriteFile(ctx context.Context, name string, data []byte) error
}

// ProgressFunc сообщает о ходе экспорта
type ProgressFunc func(done, total int, message string)
