package gmail

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"net/http"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"ga03-kanban/internal/kanban/domain"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// TokenUpdateFunc is called with a token the OAuth client refreshed
type TokenUpdateFunc func(*oauth2.Token) error

type Service struct {
	clientID     string
	clientSecret string
}

type notifyTokenSource struct {
	mu       sync.Mutex
	src      oauth2.TokenSource
	current  *oauth2.Token
	callback TokenUpdateFunc
}

func (s *notifyTokenSource) Token() (*oauth2.Token, error) {
	t, err := s.src.Token()
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.callback != nil && s.current.AccessToken != t.AccessToken {
		s.current = t
		if err := s.callback(t); err != nil {
			log.Printf("[Gmail] Failed to update token: %v", err)
		}
	}
	return t, nil
}

func NewService(clientID, clientSecret string) *Service {
	return &Service{
		clientID:     clientID,
		clientSecret: clientSecret,
	}
}

// Client talks to the mailbox of one user
type Client struct {
	srv *gmail.Service
}

// Client creates a Gmail client with the user's tokens
func (s *Service) Client(ctx context.Context, accessToken, refreshToken string, expiry *time.Time, onTokenRefresh TokenUpdateFunc) (*Client, error) {
	token := &oauth2.Token{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
	}
	switch {
	case expiry != nil:
		token.Expiry = *expiry
	case refreshToken != "":
		// Unknown expiry: refresh on first use
		token.Expiry = time.Now()
	}

	config := &oauth2.Config{
		ClientID:     s.clientID,
		ClientSecret: s.clientSecret,
		Endpoint:     google.Endpoint,
	}

	// Wrap token source to detect refreshes
	wrappedSource := &notifyTokenSource{
		src:      config.TokenSource(context.Background(), token),
		current:  token,
		callback: onTokenRefresh,
	}

	client := oauth2.NewClient(context.Background(), wrappedSource)

	srv, err := gmail.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("unable to create Gmail service: %w", err)
	}
	return &Client{srv: srv}, nil
}

// ApplyLabels adds and removes labels on a message
func (c *Client) ApplyLabels(ctx context.Context, emailID string, add, remove []string) error {
	modifyReq := &gmail.ModifyMessageRequest{}
	if len(add) > 0 {
		modifyReq.AddLabelIds = add
	}
	if len(remove) > 0 {
		modifyReq.RemoveLabelIds = remove
	}

	_, err := c.srv.Users.Messages.Modify("me", emailID, modifyReq).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("unable to modify message labels: %w", translate(err))
	}
	return nil
}

// ListLabels returns the system and user labels of the mailbox
func (c *Client) ListLabels(ctx context.Context) ([]domain.Label, error) {
	resp, err := c.srv.Users.Labels.List("me").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve labels: %w", translate(err))
	}

	labels := make([]domain.Label, 0, len(resp.Labels))
	for _, l := range resp.Labels {
		if l.Type != "system" && l.Type != "user" {
			continue
		}
		labels = append(labels, domain.Label{ID: l.Id, Name: l.Name, Type: domain.LabelType(l.Type)})
	}
	sort.Slice(labels, func(i, j int) bool {
		if labels[i].Type != labels[j].Type {
			return labels[i].Type == domain.LabelTypeSystem
		}
		return labels[i].Name < labels[j].Name
	})
	return labels, nil
}

// RecentCards fetches the newest messages carrying labelID as board cards
func (c *Client) RecentCards(ctx context.Context, labelID string, limit int) ([]domain.BoardEmail, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 500 {
		limit = 500 // Gmail API maximum
	}

	list := c.srv.Users.Messages.List("me").MaxResults(int64(limit)).Context(ctx)
	if labelID != "" {
		list = list.LabelIds(labelID)
	}
	resp, err := list.Do()
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve messages: %w", translate(err))
	}

	type cardResult struct {
		card *domain.BoardEmail
		err  error
	}
	results := make(chan cardResult, len(resp.Messages))
	semaphore := make(chan struct{}, 10) // Max 10 concurrent requests

	for _, msg := range resp.Messages {
		go func(msgID string) {
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			full, err := c.srv.Users.Messages.Get("me", msgID).Format("full").Context(ctx).Do()
			if err != nil {
				results <- cardResult{err: err}
				return
			}
			results <- cardResult{card: cardFromMessage(full)}
		}(msg.Id)
	}

	cards := make([]domain.BoardEmail, 0, len(resp.Messages))
	for range resp.Messages {
		r := <-results
		if r.err != nil {
			log.Printf("[Gmail] Skipping message: %v", r.err)
			continue
		}
		cards = append(cards, *r.card)
	}

	// Parallel fetching returns messages in random order
	sort.Slice(cards, func(i, j int) bool {
		return cards[i].ReceivedAt.After(cards[j].ReceivedAt)
	})
	return cards, nil
}

// translate maps Gmail API errors onto board error kinds
func translate(err error) error {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return err
	}
	switch apiErr.Code {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", domain.ErrEmailGone, apiErr.Message)
	case http.StatusBadRequest:
		return domain.Validationf("%s", apiErr.Message)
	}
	return err
}

var tagPattern = regexp.MustCompile(`<[^>]*>`)

func cardFromMessage(msg *gmail.Message) *domain.BoardEmail {
	from := getHeader(msg.Payload.Headers, "From")
	fromName, fromEmail := from, from
	// Split "Name <email@example.com>"
	if idx := strings.Index(from, "<"); idx >= 0 {
		fromEmail = strings.Trim(from[idx:], "<> ")
		if idx > 0 {
			fromName = strings.Trim(strings.TrimSpace(from[:idx]), `"`)
		} else {
			fromName = fromEmail
		}
	}

	body, isHTML := getEmailBody(msg.Payload)
	preview := body
	if isHTML {
		preview = tagPattern.ReplaceAllString(preview, " ")
		preview = strings.NewReplacer("&nbsp;", " ", "&lt;", "<", "&gt;", ">", "&amp;", "&", "&quot;", "\"").Replace(preview)
	}
	preview = strings.Join(strings.Fields(preview), " ")
	if len(msg.Snippet) > 0 && preview == "" {
		preview = msg.Snippet
	}
	if len(preview) > 200 {
		preview = preview[:200] + "..."
	}

	return &domain.BoardEmail{
		EmailID:        msg.Id,
		Subject:        getHeader(msg.Payload.Headers, "Subject"),
		FromEmail:      fromEmail,
		FromName:       fromName,
		Preview:        preview,
		ReceivedAt:     time.UnixMilli(msg.InternalDate),
		IsRead:         !hasLabel(msg.LabelIds, domain.LabelUnread),
		IsStarred:      hasLabel(msg.LabelIds, domain.LabelStarred),
		HasAttachments: hasAttachments(msg.Payload),
	}
}

func getHeader(headers []*gmail.MessagePartHeader, name string) string {
	for _, header := range headers {
		if strings.EqualFold(header.Name, name) {
			return header.Value
		}
	}
	return ""
}

func getEmailBody(payload *gmail.MessagePart) (string, bool) {
	if payload.Body != nil && payload.Body.Data != "" {
		if data, err := base64.URLEncoding.DecodeString(payload.Body.Data); err == nil {
			return string(data), payload.MimeType == "text/html"
		}
	}

	var htmlBody, plainBody string
	var findBody func(parts []*gmail.MessagePart)
	findBody = func(parts []*gmail.MessagePart) {
		for _, part := range parts {
			if part.Body != nil && part.Body.Data != "" {
				data, err := base64.URLEncoding.DecodeString(part.Body.Data)
				if err == nil {
					switch part.MimeType {
					case "text/html":
						htmlBody = string(data)
					case "text/plain":
						plainBody = string(data)
					}
				}
			}
			if len(part.Parts) > 0 {
				findBody(part.Parts)
			}
		}
	}
	findBody(payload.Parts)

	if htmlBody != "" {
		return htmlBody, true
	}
	return plainBody, false
}

func hasAttachments(payload *gmail.MessagePart) bool {
	for _, part := range payload.Parts {
		if part.Filename != "" && part.Body != nil && part.Body.AttachmentId != "" {
			return true
		}
		if len(part.Parts) > 0 && hasAttachments(part) {
			return true
		}
	}
	return false
}

func hasLabel(labels []string, labelID string) bool {
	for _, label := range labels {
		if label == labelID {
			return true
		}
	}
	return false
}
