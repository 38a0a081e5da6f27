package cli

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/blackmichael/blogdemo/internal/blogclient"
)

type publishOptions struct {
	email       string
	password    string
	title       string
	content     string
	contentFile string
	image       string
}

// NewPublishCommand creates the publish command.
func NewPublishCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &publishOptions{}

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Publish a post through a running server",
		Long: `Sign in, optionally upload an image through a signed upload URL, and
create a post. Use --token to reuse a session instead of signing in.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPublish(rootOpts, opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.email, "email", os.Getenv("BLOG_EMAIL"), "account email (BLOG_EMAIL)")
	cmd.Flags().StringVar(&opts.password, "password", os.Getenv("BLOG_PASSWORD"), "account password (BLOG_PASSWORD)")
	cmd.Flags().StringVar(&opts.title, "title", "", "post title")
	cmd.Flags().StringVar(&opts.content, "content", "", "post body")
	cmd.Flags().StringVar(&opts.contentFile, "content-file", "", "read the post body from a file")
	cmd.Flags().StringVar(&opts.image, "image", "", "path to an image to attach")
	cmd.MarkFlagRequired("title")
	cmd.MarkFlagsMutuallyExclusive("content", "content-file")

	return cmd
}

func runPublish(rootOpts *RootOptions, opts *publishOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	client := blogclient.NewClient(rootOpts.Server)

	content := opts.content
	if opts.contentFile != "" {
		data, err := os.ReadFile(opts.contentFile)
		if err != nil {
			return fmt.Errorf("read content file: %w", err)
		}
		content = string(data)
	}

	switch {
	case rootOpts.Token != "":
		client.SetToken(rootOpts.Token)
	case opts.email != "" && opts.password != "":
		if err := client.SignIn(ctx, opts.email, opts.password); err != nil {
			return err
		}
	default:
		return errors.New("--token or both --email and --password are required")
	}

	in := blogclient.NewPost{Title: opts.title, Content: content}
	if opts.image != "" {
		data, err := os.ReadFile(opts.image)
		if err != nil {
			return fmt.Errorf("read image: %w", err)
		}
		in.ImageID, err = client.UploadImage(ctx, data, http.DetectContentType(data))
		if err != nil {
			return err
		}
	}

	post, err := client.CreatePost(ctx, in)
	if err != nil {
		return err
	}

	postURL := client.BaseURL() + "/blog/" + post.ID
	return newPrinter(rootOpts, cmd).result(map[string]any{
		"post": post,
		"url":  postURL,
	}, func(w io.Writer) {
		fmt.Fprintf(w, "Post published: %s\n", postURL)
	})
}
