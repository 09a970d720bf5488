package providers

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/i474232898/skywatch/internal/geo"
	"github.com/i474232898/skywatch/internal/upstream"
)

// IPAccuracy is the radius, in meters, assumed for an IP-derived position.
const IPAccuracy = 5000

const (
	ipapiURL = "https://ipapi.co"
	ipAPIURL = "http://ip-api.com/json"
)

// IPSensor approximates a position from the caller's public IP address. It
// produces a single sample, so refinement ends after one read. The outcome of
// the first lookup is reused by later reads.
type IPSensor struct {
	client   *upstream.Client
	ip       string
	ipapi    string
	ipAPICom string

	mu     sync.Mutex
	looked bool
	fix    geo.Fix
	err    error
}

// NewIPSensor locates ip. An empty ip locates the server's own address.
func NewIPSensor(client *upstream.Client, ip string) *IPSensor {
	return &IPSensor{client: client, ip: ip, ipapi: ipapiURL, ipAPICom: ipAPIURL}
}

// WithBaseURLs replaces both lookup endpoints, e.g. with test servers.
func (s *IPSensor) WithBaseURLs(ipapi, ipAPICom string) *IPSensor {
	s.ipapi, s.ipAPICom = ipapi, ipAPICom
	return s
}

type ipapiResponse struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Error     bool     `json:"error"`
	Reason    string   `json:"reason"`
}

type ipAPIComResponse struct {
	Status  string  `json:"status"`
	Message string  `json:"message"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

// Current implements geo.Sensor. ipapi.co is asked first and ip-api.com is
// the fallback.
func (s *IPSensor) Current(ctx context.Context) (geo.Fix, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.looked {
		s.fix, s.err = s.lookup(ctx)
		s.looked = true
	}
	return s.fix, s.err
}

func (s *IPSensor) lookup(ctx context.Context) (geo.Fix, error) {
	fix, errPrimary := s.fromIPAPI(ctx)
	if errPrimary == nil {
		return fix, nil
	}
	fix, errFallback := s.fromIPAPICom(ctx)
	if errFallback == nil {
		return fix, nil
	}
	return geo.Fix{}, errors.Join(errPrimary, errFallback)
}

// Watch implements geo.Sensor with a single read.
func (s *IPSensor) Watch(ctx context.Context) (<-chan geo.Fix, <-chan error) {
	out := make(chan geo.Fix, 1)
	errc := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errc)

		fix, err := s.Current(ctx)
		if err != nil {
			errc <- err
			return
		}
		out <- fix
	}()
	return out, errc
}

func (s *IPSensor) fromIPAPI(ctx context.Context) (geo.Fix, error) {
	endpoint := s.ipapi + "/json/"
	if s.ip != "" {
		endpoint = s.ipapi + "/" + s.ip + "/json/"
	}

	var resp ipapiResponse
	if err := s.client.GetJSON(ctx, endpoint, nil, &resp); err != nil {
		return geo.Fix{}, err
	}
	if resp.Error || resp.Latitude == nil || resp.Longitude == nil {
		return geo.Fix{}, fmt.Errorf("ipapi.co: %s: %w", resp.Reason, errNoResults)
	}
	return geo.Fix{Lat: *resp.Latitude, Lon: *resp.Longitude, Accuracy: IPAccuracy}, nil
}

func (s *IPSensor) fromIPAPICom(ctx context.Context) (geo.Fix, error) {
	endpoint := s.ipAPICom
	if s.ip != "" {
		endpoint += "/" + s.ip
	}

	var resp ipAPIComResponse
	if err := s.client.GetJSON(ctx, endpoint, nil, &resp); err != nil {
		return geo.Fix{}, err
	}
	if resp.Status != "success" {
		return geo.Fix{}, fmt.Errorf("ip-api.com: %s: %w", resp.Message, errNoResults)
	}
	return geo.Fix{Lat: resp.Lat, Lon: resp.Lon, Accuracy: IPAccuracy}, nil
}
