package main

import (
	"flag"
	"fmt"
	"io/fs"
	"log"
	"path/filepath"

	"mediaserver/internal/config"
	"mediaserver/internal/logger"
	"mediaserver/internal/repository/sqlite"
	"mediaserver/internal/service/files"
	"mediaserver/internal/service/storage"
)

// import registers media files that already exist under the media root, for
// example after restoring a backup, so they show up in the file API.
func main() {
	cfg := config.Load()
	mediaRoot := flag.String("media", cfg.MediaRoot, "Directory containing media files")
	dbPath := flag.String("db", cfg.DatabasePath, "Database path")
	flag.Parse()

	fmt.Printf("Importing media from %s into database %s\n", *mediaRoot, *dbPath)

	db, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	log := logger.NewNop()
	store := storage.NewLocalStore(*mediaRoot, cfg.Domain+"/media/", log)
	svc := files.NewService(sqlite.NewFileRepository(db), store, nil, log)

	imported, skipped := 0, 0
	root := store.Root()
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			fmt.Printf("Skipping %s: %v\n", rel, err)
			skipped++
			return nil
		}

		if _, err := svc.Register(filepath.ToSlash(rel), info.Size(), info.ModTime()); err != nil {
			fmt.Printf("Skipping %s: %v\n", rel, err)
			skipped++
			return nil
		}
		imported++
		return nil
	})
	if err != nil {
		fmt.Printf("Failed to walk %s: %v\n", root, err)
	}

	fmt.Printf("Registered %d files\n", imported)
	if skipped > 0 {
		fmt.Printf("Skipped %d files (unsupported type or errors)\n", skipped)
	}
}
