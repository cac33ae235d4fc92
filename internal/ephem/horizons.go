// Package ephem supplies non-sidereal target trajectories by querying the
// JPL Horizons API, implementing internal/targetinfo.EphemerisProvider
// (spec.md §6 "Ephemeris service"). Adapted from the teacher's spacecraft
// ephemeris client (internal/ephem/horizons.go), which queried Horizons by
// NAIF/SPICE ID for Az/El tracking data; here the query is by target
// designation (comets and minor planets use a name or packed designation
// as their Horizons COMMAND string, not a NAIF ID) and returns geocentric
// RA/Dec rather than observer-relative Az/El, matching what
// model.Target.Ephemeris needs.
package ephem

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/litescript/gemscheduler/internal/model"
)

const (
	// HorizonsAPIURL is the JPL Horizons JSON API endpoint.
	HorizonsAPIURL = "https://ssd.jpl.nasa.gov/api/horizons.api"

	// PathCacheTTL bounds how long a fetched trajectory is reused before
	// re-querying Horizons for the same (designation, night) pair.
	PathCacheTTL = 10 * time.Minute

	// RequestTimeout is the HTTP request timeout.
	RequestTimeout = 30 * time.Second
)

// HorizonsProvider queries JPL Horizons for a non-sidereal target's RA/Dec
// ephemeris over a night's time-slot grid.
type HorizonsProvider struct {
	client *http.Client

	mu    sync.RWMutex
	cache map[string]*cachedPath
}

type cachedPath struct {
	points    []model.EphemerisPoint
	fetchedAt time.Time
}

// NewHorizonsProvider builds a HorizonsProvider with a bounded HTTP client
// timeout.
func NewHorizonsProvider() *HorizonsProvider {
	return &HorizonsProvider{
		client: &http.Client{Timeout: RequestTimeout},
		cache:  make(map[string]*cachedPath),
	}
}

// Positions implements targetinfo.EphemerisProvider: it fetches (or reuses
// a cached) geocentric RA/Dec trajectory for target over
// [date, date+numSlots*slotLength).
func (p *HorizonsProvider) Positions(target *model.Target, date time.Time, numSlots int, slotLength time.Duration) ([]model.EphemerisPoint, error) {
	if target == nil || target.Name == "" {
		return nil, fmt.Errorf("ephem: target requires a Horizons designation in Name")
	}
	if numSlots <= 0 {
		return nil, nil
	}

	key := cacheKey(target.Name, date, slotLength)
	p.mu.RLock()
	cached, ok := p.cache[key]
	p.mu.RUnlock()
	if ok && time.Since(cached.fetchedAt) < PathCacheTTL {
		return cached.points, nil
	}

	end := date.Add(time.Duration(numSlots) * slotLength)
	points, err := p.queryRADec(target.Name, date, end, slotLength)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.cache[key] = &cachedPath{points: points, fetchedAt: time.Now()}
	p.mu.Unlock()

	return points, nil
}

func cacheKey(designation string, date time.Time, slotLength time.Duration) string {
	return fmt.Sprintf("%s|%d|%d", designation, date.Unix(), slotLength)
}

// queryRADec requests geocentric astrometric RA/Dec from Horizons for
// designation over [start, end) at the given step.
func (p *HorizonsProvider) queryRADec(designation string, start, end time.Time, step time.Duration) ([]model.EphemerisPoint, error) {
	params := url.Values{}
	params.Set("format", "json")
	params.Set("COMMAND", fmt.Sprintf("'%s'", designation))
	params.Set("OBJ_DATA", "NO")
	params.Set("MAKE_EPHEM", "YES")
	params.Set("EPHEM_TYPE", "OBSERVER")
	params.Set("CENTER", "'500@399'") // geocentric (Earth center)
	params.Set("START_TIME", fmt.Sprintf("'%s'", formatHorizonsTime(start)))
	params.Set("STOP_TIME", fmt.Sprintf("'%s'", formatHorizonsTime(end)))
	params.Set("STEP_SIZE", fmt.Sprintf("'%s'", formatStepSize(step)))
	params.Set("QUANTITIES", "'1'") // 1 = astrometric RA/Dec

	reqURL := HorizonsAPIURL + "?" + params.Encode()

	resp, err := p.client.Get(reqURL)
	if err != nil {
		return nil, fmt.Errorf("ephem: horizons request for %s: %w", designation, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("ephem: reading horizons response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ephem: horizons returned status %d", resp.StatusCode)
	}

	return parseRADecResponse(body)
}

type horizonsResponse struct {
	Signature struct {
		Version string `json:"version"`
		Source  string `json:"source"`
	} `json:"signature"`
	Result string `json:"result"`
}

func parseRADecResponse(body []byte) ([]model.EphemerisPoint, error) {
	bodyStr := strings.TrimSpace(string(body))
	if strings.HasPrefix(bodyStr, "<!DOCTYPE") || strings.HasPrefix(strings.ToLower(bodyStr), "<html") {
		return nil, fmt.Errorf("ephem: horizons returned an HTML error page")
	}

	var resp horizonsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("ephem: decoding horizons JSON: %w", err)
	}

	soeIdx := strings.Index(resp.Result, "$$SOE")
	eoeIdx := strings.Index(resp.Result, "$$EOE")
	if soeIdx == -1 || eoeIdx == -1 || soeIdx >= eoeIdx {
		return nil, fmt.Errorf("ephem: no ephemeris data markers in horizons response")
	}

	var points []model.EphemerisPoint
	for _, line := range strings.Split(resp.Result[soeIdx+5:eoeIdx], "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		pt, err := parseRADecLine(line)
		if err != nil {
			continue // skip unparseable lines, matching Horizons' occasional flag noise
		}
		points = append(points, pt)
	}
	return points, nil
}

// parseRADecLine parses one data row, e.g.
// "2025-Dec-05 00:00 *   261.032124  32.878027" (date, time, flags, RA, Dec).
func parseRADecLine(line string) (model.EphemerisPoint, error) {
	fields := strings.Fields(line)
	if len(fields) < 4 {
		return model.EphemerisPoint{}, fmt.Errorf("insufficient fields: %d", len(fields))
	}

	t, err := parseHorizonsDateTime(fields[0] + " " + fields[1])
	if err != nil {
		return model.EphemerisPoint{}, err
	}

	var ra, dec float64
	numeric := 0
	for _, f := range fields[2:] {
		val, err := strconv.ParseFloat(f, 64)
		if err != nil {
			continue
		}
		numeric++
		switch numeric {
		case 1:
			ra = val
		case 2:
			dec = val
		}
		if numeric == 2 {
			break
		}
	}
	if numeric < 2 {
		return model.EphemerisPoint{}, fmt.Errorf("could not find RA/Dec values")
	}

	return model.EphemerisPoint{Time: t, RAdeg: ra, DecDeg: dec}, nil
}

func parseHorizonsDateTime(s string) (time.Time, error) {
	if t, err := time.Parse("2006-Jan-02 15:04", s); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse("2006-Jan-02 15:04:05", s); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("unable to parse horizons date/time: %s", s)
}

func formatHorizonsTime(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04")
}

func formatStepSize(d time.Duration) string {
	minutes := int(d.Minutes())
	if minutes < 1 {
		minutes = 1
	}
	if minutes >= 60 && minutes%60 == 0 {
		return fmt.Sprintf("%d h", minutes/60)
	}
	return fmt.Sprintf("%d m", minutes)
}
