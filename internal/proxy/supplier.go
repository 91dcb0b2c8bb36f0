package proxy

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"resty.dev/v3"
)

// ProxySupplier hands out validated proxies in round-robin order
type ProxySupplier interface {
	Get() string
	Len() int
}

type proxySupplier struct {
	proxies []string
	current int
	mutex   sync.Mutex
}

// NewProxySupplier keeps the proxies that can reach probeURL. Probes run one
// after another so the storefront never sees parallel requests from us.
func NewProxySupplier(ctx context.Context, proxies []string, probeURL string) ProxySupplier {
	valid := make([]string, 0, len(proxies))

	if len(proxies) > 0 {
		log.Infof("🔄 Probing %d proxies against %s...", len(proxies), probeURL)
	}

	for i, proxyURL := range proxies {
		if ctx.Err() != nil {
			break
		}
		log.Debugf("🔄 Probing proxy %d/%d: %s", i+1, len(proxies), proxyURL)
		if reachable(ctx, proxyURL, probeURL) {
			valid = append(valid, proxyURL)
			log.Infof("✅ Proxy %s is working", proxyURL)
		} else {
			log.Warnf("❌ Proxy %s is not working, skipping", proxyURL)
		}
	}

	if len(proxies) > 0 {
		log.Infof("Proxy supplier ready with %d of %d proxies", len(valid), len(proxies))
	}

	return &proxySupplier{proxies: valid}
}

// Get returns the next proxy URL, or "" when none are usable
func (p *proxySupplier) Get() string {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if len(p.proxies) == 0 {
		return ""
	}

	proxy := p.proxies[p.current]
	p.current = (p.current + 1) % len(p.proxies)

	return proxy
}

func (p *proxySupplier) Len() int {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return len(p.proxies)
}

func reachable(ctx context.Context, proxyURL, probeURL string) bool {
	client := resty.New().
		SetTimeout(5 * time.Second).
		SetRetryCount(0).
		SetProxy(proxyURL)
	defer client.Close()

	resp, err := client.R().
		SetContext(ctx).
		Get(probeURL)
	if err != nil {
		log.Debugf("Proxy probe failed for %s: %v", proxyURL, err)
		return false
	}

	return !resp.IsError()
}
