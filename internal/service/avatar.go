package service

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Payphone-Digital/contacts-api/config"
	"github.com/Payphone-Digital/contacts-api/pkg/circuit"
	"github.com/Payphone-Digital/contacts-api/pkg/logger"
	"github.com/Payphone-Digital/contacts-api/pkg/metrics"
	"github.com/doyensec/safeurl"
)

// GravatarProvider builds the Gravatar URL for an email. Every address gets
// one; Gravatar serves its default image for unknown hashes. With Verify set
// the URL is checked once behind a circuit breaker and a failed check leaves
// the avatar empty.
type GravatarProvider struct {
	baseURL      string
	size         int
	defaultImage string
	verify       bool
	client       *http.Client
	breaker      *circuit.Breaker[string]
	metrics      metrics.Recorder
}

// NewGravatarProvider builds a provider; a nil client gets an SSRF guarded
// client from safeurl.
func NewGravatarProvider(cfg config.AvatarConfig, client *http.Client, rec metrics.Recorder) *GravatarProvider {
	if client == nil {
		client = safeurl.Client(safeurl.GetConfigBuilder().
			SetTimeout(cfg.Timeout).
			SetAllowedSchemes("https").
			SetAllowedPorts(443).
			Build()).Client
	}
	if rec == nil {
		rec = metrics.Nop{}
	}

	baseURL := cfg.BaseURL
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}

	breakerCfg := circuit.DefaultConfig()
	if cfg.MaxFailures > 0 {
		breakerCfg.Threshold = cfg.MaxFailures
	}
	if cfg.OpenInterval > 0 {
		breakerCfg.Timeout = cfg.OpenInterval
	}

	return &GravatarProvider{
		baseURL:      baseURL,
		size:         cfg.Size,
		defaultImage: cfg.DefaultImage,
		verify:       cfg.Verify,
		client:       client,
		breaker:      circuit.NewBreaker[string]("gravatar", breakerCfg, logger.GetLogger(), nil),
		metrics:      rec,
	}
}

func (p *GravatarProvider) AvatarURL(ctx context.Context, email string) (string, error) {
	avatar := p.imageURL(gravatarHash(email))
	if !p.verify {
		p.metrics.RecordAvatarLookup("built")
		return avatar, nil
	}

	checked, err := p.breaker.Execute(func() (string, error) {
		if err := p.check(ctx, avatar); err != nil {
			return "", err
		}
		return avatar, nil
	})

	switch {
	case err == nil:
		p.metrics.RecordAvatarLookup("verified")
		return checked, nil
	case circuit.IsRejected(err):
		p.metrics.RecordAvatarLookup("rejected")
	default:
		p.metrics.RecordAvatarLookup("failed")
	}
	return "", err
}

// check asks Gravatar for the image. 404 is what Gravatar answers for an
// unknown hash when the default image is "404", so it counts as reachable.
func (p *GravatarProvider) check(ctx context.Context, avatar string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, avatar, nil)
	if err != nil {
		return err
	}

	start := time.Now()
	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("gravatar check: %w", err)
	}
	defer resp.Body.Close()

	logger.DebugWithContext(ctx, "Gravatar check").
		Int("status", resp.StatusCode).
		Duration(time.Since(start)).
		Log()

	if resp.StatusCode >= 300 && resp.StatusCode != http.StatusNotFound {
		return fmt.Errorf("gravatar check: unexpected status %d", resp.StatusCode)
	}
	return nil
}

func (p *GravatarProvider) imageURL(hash string) string {
	avatar := p.baseURL + hash
	var params []string
	if p.size > 0 {
		params = append(params, fmt.Sprintf("s=%d", p.size))
	}
	if p.defaultImage != "" {
		params = append(params, "d="+url.QueryEscape(p.defaultImage))
	}
	if len(params) > 0 {
		avatar += "?" + strings.Join(params, "&")
	}
	return avatar
}

func gravatarHash(email string) string {
	sum := md5.Sum([]byte(normalizeEmail(email)))
	return hex.EncodeToString(sum[:])
}
