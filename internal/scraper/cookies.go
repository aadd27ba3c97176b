package scraper

import (
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"

	"github.com/browserutils/kooky"
	// Use all browsers for Kooky:
	_ "github.com/browserutils/kooky/browser/all"
	"golang.org/x/net/publicsuffix"

	"grabarr/internal/domain/logger"
)

// CookieManager loads and caches browser cookies per base domain.
type CookieManager struct {
	enabled bool
	mu      sync.RWMutex
	cookies map[string][]*http.Cookie

	// load reads cookies for a base domain. Replaced in tests.
	load func(ctx context.Context, domain string) []*http.Cookie
}

// NewCookieManager returns a manager. When enabled is false no browser stores are read.
func NewCookieManager(enabled bool) *CookieManager {
	return &CookieManager{
		enabled: enabled,
		cookies: make(map[string][]*http.Cookie),
		load:    loadCookiesForDomain,
	}
}

// GetCookies retrieves cookies for a given URL.
func (cm *CookieManager) GetCookies(ctx context.Context, u string) ([]*http.Cookie, error) {
	if cm == nil || !cm.enabled {
		return nil, nil
	}

	domain, err := baseDomain(u)
	if err != nil {
		return nil, fmt.Errorf("error extracting base domain in cookie grab: %w", err)
	}

	cm.mu.RLock()
	if cookies, ok := cm.cookies[domain]; ok {
		cm.mu.RUnlock()
		return cookies, nil
	}
	cm.mu.RUnlock()

	cookies := cm.load(ctx, domain)

	cm.mu.Lock()
	defer cm.mu.Unlock()
	if existing, ok := cm.cookies[domain]; ok {
		return existing, nil
	}
	cm.cookies[domain] = cookies
	return cookies, nil
}

// Jar returns a public-suffix aware cookie jar seeded with cookies for each seed URL.
func (cm *CookieManager) Jar(ctx context.Context, seeds ...string) (*cookiejar.Jar, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	for _, s := range seeds {
		u, err := url.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("invalid URL %q: %w", s, err)
		}
		cookies, err := cm.GetCookies(ctx, s)
		if err != nil {
			return nil, err
		}
		if len(cookies) > 0 {
			jar.SetCookies(u, cookies)
		}
	}
	return jar, nil
}

// loadCookiesForDomain loads the browser cookies associated with a domain.
func loadCookiesForDomain(ctx context.Context, domain string) []*http.Cookie {
	kookieCookies, err := kooky.ReadCookies(ctx, kooky.Valid, kooky.Domain(domain))
	if err != nil {
		logger.Pl.D(2, "Failed reading cookies: %v", err)
		return nil
	}

	if len(kookieCookies) > 0 {
		logger.Pl.I("Found %d cookies for %s", len(kookieCookies), domain)
		return convertToHTTPCookies(kookieCookies)
	}

	logger.Pl.D(1, "No cookies found for %s", domain)
	return nil
}

// convertToHTTPCookies converts kooky cookies to http.Cookie format.
func convertToHTTPCookies(kookyCookies []*kooky.Cookie) []*http.Cookie {
	httpCookies := make([]*http.Cookie, 0, len(kookyCookies))
	for _, c := range kookyCookies {
		if c == nil {
			continue
		}
		httpCookies = append(httpCookies, &http.Cookie{
			Name:   c.Name,
			Value:  c.Value,
			Path:   c.Path,
			Domain: c.Domain,
			Secure: c.Secure,
		})
	}
	return httpCookies
}
