package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/blackmichael/blogdemo/internal/domain"
)

// SeedFile is the YAML document accepted by the seed command.
type SeedFile struct {
	Users []SeedUser `yaml:"users"`
	Posts []SeedPost `yaml:"posts"`
}

// SeedUser is an account to create.
type SeedUser struct {
	Name     string `yaml:"name"`
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
}

// SeedPost is a post written by the user whose email is Author.
type SeedPost struct {
	Author   string        `yaml:"author"`
	Title    string        `yaml:"title"`
	Content  string        `yaml:"content"`
	Comments []SeedComment `yaml:"comments"`
}

// SeedComment is a comment on the enclosing post.
type SeedComment struct {
	Author string `yaml:"author"`
	Body   string `yaml:"body"`
}

// SeedResult counts what a seed run created.
type SeedResult struct {
	Users         int `json:"users"`
	ExistingUsers int `json:"existing_users"`
	Posts         int `json:"posts"`
	Comments      int `json:"comments"`
}

// ParseSeedFile decodes a seed document, rejecting unknown keys.
func ParseSeedFile(r io.Reader) (*SeedFile, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var file SeedFile
	if err := dec.Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return &file, nil
		}
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	return &file, nil
}

// NewSeedCommand creates the seed command.
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed <file.yaml>",
		Short: "Load users, posts and comments from a YAML file",
		Long: `Load demo content straight into the database named by --db.

Users that already exist are reused, so a file can be applied to a
database that was seeded before. Posts and comments are always added.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open seed file: %w", err)
			}
			defer f.Close()

			file, err := ParseSeedFile(f)
			if err != nil {
				return err
			}

			local, err := openLocal(rootOpts, rootOpts.logger(cmd))
			if err != nil {
				return err
			}
			defer local.Close()

			result, err := seed(cmd.Context(), local, file)
			if err != nil {
				return err
			}

			return newPrinter(rootOpts, cmd).result(result, func(w io.Writer) {
				fmt.Fprintf(w, "created %d users (%d existing), %d posts, %d comments\n",
					result.Users, result.ExistingUsers, result.Posts, result.Comments)
			})
		},
	}
}

func seed(ctx context.Context, local *localServices, file *SeedFile) (*SeedResult, error) {
	result := &SeedResult{}
	users := make(map[string]*domain.User, len(file.Users))

	for _, su := range file.Users {
		user, err := local.auth.CreateUser(ctx, domain.SignUpInput{Name: su.Name, Email: su.Email, Password: su.Password})
		if errors.Is(err, domain.ErrEmailTaken) {
			user, err = local.repo.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(su.Email)))
			result.ExistingUsers++
		} else if err == nil {
			result.Users++
		}
		if err != nil {
			return result, fmt.Errorf("seed user %q: %w", su.Email, err)
		}
		users[user.Email] = user
	}

	lookup := func(email string) (*domain.User, error) {
		user, ok := users[strings.ToLower(strings.TrimSpace(email))]
		if !ok {
			return nil, fmt.Errorf("unknown author %q", email)
		}
		return user, nil
	}

	for _, sp := range file.Posts {
		author, err := lookup(sp.Author)
		if err != nil {
			return result, fmt.Errorf("seed post %q: %w", sp.Title, err)
		}
		post, err := local.blog.CreatePost(ctx, author, domain.PostInput{Title: sp.Title, Content: sp.Content})
		if err != nil {
			return result, fmt.Errorf("seed post %q: %w", sp.Title, err)
		}
		result.Posts++

		for _, sc := range sp.Comments {
			commenter, err := lookup(sc.Author)
			if err != nil {
				return result, fmt.Errorf("seed comment on %q: %w", sp.Title, err)
			}
			if _, err := local.blog.CreateComment(ctx, commenter, domain.CommentInput{PostID: post.ID, Body: sc.Body}); err != nil {
				return result, fmt.Errorf("seed comment on %q: %w", sp.Title, err)
			}
			result.Comments++
		}
	}

	return result, nil
}
