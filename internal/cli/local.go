package cli

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"

	"github.com/blackmichael/blogdemo/internal/blobstore"
	"github.com/blackmichael/blogdemo/internal/domain"
	"github.com/blackmichael/blogdemo/internal/storage"
	"github.com/blackmichael/blogdemo/internal/uploadtoken"
)

// localServices are the domain services bound straight to the database, for
// commands that run without a server.
type localServices struct {
	repo  storage.Repository
	blobs *blobstore.Store
	blog  *domain.BlogService
	auth  *domain.AuthService
}

func openLocal(opts *RootOptions, logger *slog.Logger) (*localServices, error) {
	repo, err := storage.Open(opts.Database)
	if err != nil {
		return nil, err
	}

	blobs, err := blobstore.Open(opts.Blobs)
	if err != nil {
		repo.Close()
		return nil, fmt.Errorf("open image store: %w", err)
	}

	// Local commands never hand out upload URLs, so a throwaway key will do.
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, errors.Join(fmt.Errorf("generate signing key: %w", err), blobs.Close(), repo.Close())
	}
	signer, err := uploadtoken.NewSigner(hex.EncodeToString(secret))
	if err != nil {
		return nil, errors.Join(err, blobs.Close(), repo.Close())
	}

	blog, err := domain.NewBlogService(domain.BlogDeps{
		Posts:    repo,
		Comments: repo,
		Users:    repo,
		Sessions: repo,
		Images:   blobs,
		Signer:   signer,
	}, domain.BlogOptions{}, logger)
	if err != nil {
		return nil, errors.Join(err, blobs.Close(), repo.Close())
	}

	return &localServices{
		repo:  repo,
		blobs: blobs,
		blog:  blog,
		auth:  domain.NewAuthService(repo, repo, 0, logger),
	}, nil
}

func (l *localServices) Close() error {
	return errors.Join(l.blobs.Close(), l.repo.Close())
}
