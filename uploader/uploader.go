package uploader

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const defaultAPIBase = "https://api.github.com"

type GitHubUploadRequest struct {
	Message string `json:"message"`
	Content string `json:"content"`
	SHA     string `json:"sha,omitempty"`
}

type contentResponse struct {
	SHA string `json:"sha"`
}

// GitHub publishes files through the repository contents API.
type GitHub struct {
	Token   string
	Repo    string
	APIBase string
	Client  *http.Client
}

func NewGitHub(token, repo string) *GitHub {
	return &GitHub{
		Token:   token,
		Repo:    repo,
		APIBase: defaultAPIBase,
		Client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// Upload creates or replaces path in the repository with the file's content.
func (g *GitHub) Upload(ctx context.Context, path, filename string) error {
	fileContent, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("error reading file: %w", err)
	}

	uploadURL := fmt.Sprintf("%s/repos/%s/contents/%s", strings.TrimRight(g.APIBase, "/"), g.Repo, strings.TrimLeft(path, "/"))

	// an existing file can only be replaced with its current blob sha
	sha, err := g.currentSHA(ctx, uploadURL)
	if err != nil {
		return err
	}

	body := GitHubUploadRequest{
		Message: "Update bookings.ics",
		Content: encodeBase64(fileContent),
		SHA:     sha,
	}
	bodyJSON, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("error marshalling JSON: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURL, bytes.NewBuffer(bodyJSON))
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}
	g.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.Client.Do(req)
	if err != nil {
		return fmt.Errorf("error making request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("error uploading to GitHub, status code: %d, response: %s", resp.StatusCode, string(respBody))
	}

	log.Info().Str("repo", g.Repo).Str("path", path).Msg("Uploaded file to GitHub")
	return nil
}

func (g *GitHub) currentSHA(ctx context.Context, contentURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, contentURL, nil)
	if err != nil {
		return "", fmt.Errorf("error creating request: %w", err)
	}
	g.setHeaders(req)

	resp, err := g.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("error making request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return "", nil
	default:
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("error fetching file from GitHub, status code: %d, response: %s", resp.StatusCode, string(respBody))
	}

	var content contentResponse
	if err := json.NewDecoder(resp.Body).Decode(&content); err != nil {
		return "", fmt.Errorf("error decoding GitHub response: %w", err)
	}
	return content.SHA, nil
}

func (g *GitHub) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+g.Token)
	req.Header.Set("Accept", "application/vnd.github+json")
}

func encodeBase64(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}
