package main

import (
	"fmt"
	"os"

	"dealership-backend/blobstore"
	"dealership-backend/blobstore/filesystemstore"
	"dealership-backend/blobstore/s3"
	"dealership-backend/config"
	"dealership-backend/orm"
	"dealership-backend/server"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	setupLogging(cfg)

	db, err := orm.Open(&cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize database")
	}
	defer db.Close()

	store := initializeBlobStore(&cfg.Storage)

	srv := server.New(db, store)

	addr := fmt.Sprintf(":%d", cfg.Port)
	log.Info().Str("addr", addr).Msg("dealership backend listening")
	if err := srv.Run(addr); err != nil {
		log.Fatal().Err(err).Msg("server terminated")
	}
}

func setupLogging(cfg *config.AppConfig) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.HumanReadableOutput {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}

func initializeBlobStore(cfg *config.StorageConfig) blobstore.Store {
	var store blobstore.Store
	switch cfg.Type {
	case "filesystem":
		store = initFilesystemStore(cfg.Dir)
	case "s3":
		store = initS3Store(&cfg.S3)
	default:
		log.Warn().Msgf("unknown storage type '%s', defaulting to filesystem", cfg.Type)
		store = initFilesystemStore(cfg.Dir)
	}

	return store
}

func initFilesystemStore(dir string) blobstore.Store {
	fsStore, err := filesystemstore.New(dir)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize filesystem blob store")
	}
	log.Info().
		Str("storage_dir", dir).
		Msg("filesystem blob store initialized")

	return fsStore
}

func initS3Store(cfg *config.S3Config) blobstore.Store {
	s3Store, err := s3.New(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize s3 blob store")
	}
	log.Info().Msg("s3 blob store initialized")

	return s3Store
}
