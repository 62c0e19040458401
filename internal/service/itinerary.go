package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/pkordes/tripwise/internal/domain"
)

var (
	generations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "itinerary_generations_total",
		Help: "The total number of itinerary generation attempts by outcome",
	}, []string{"outcome"})
	generationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "itinerary_generation_duration_seconds",
		Help:    "Latency of completion gateway calls",
		Buckets: []float64{0.5, 1, 2, 5, 10, 20, 40, 60},
	})
)

// DefaultTemperature is the sampling temperature used for every generation.
const DefaultTemperature float32 = 0.75

const systemPrompt = "You are an expert, concise travel planner. " +
	"Respond with clean, readable bullet points and short paragraphs."

const promptTemplate = `Create a detailed travel itinerary for:
Destination: %s
Budget: %s
Dates: %s to %s
Traveler Type: %s

Return sections with headings exactly like this:
1) Overview
2) Daily Schedule (per day bullets)
3) Restaurants
4) Transportation
5) Tips
6) Estimated Costs (per-day breakdown + total)
7) Packing List (bullet list)
8) Map Recommendations (top 5 points of interest with short description)

Keep it concise but specific; avoid long paragraphs.`

// Completer sends one system instruction and one user prompt to a hosted
// model and returns its raw answer. completion.OpenAI and completion.Gemini
// satisfy it.
type Completer interface {
	Complete(ctx context.Context, system, prompt string, temperature float32) (string, error)
}

// ItineraryService turns trip parameters into itinerary text.
type ItineraryService struct {
	completer   Completer
	temperature float32
}

// NewItineraryService constructs an ItineraryService. A nil completer makes
// every generation fail with domain.ErrUnavailable; a non-positive
// temperature means DefaultTemperature.
func NewItineraryService(c Completer, temperature float32) *ItineraryService {
	if temperature <= 0 {
		temperature = DefaultTemperature
	}
	return &ItineraryService{completer: c, temperature: temperature}
}

// Generate validates req, calls the completion gateway once and returns the
// trimmed answer.
func (s *ItineraryService) Generate(ctx context.Context, req domain.ItineraryRequest) (string, error) {
	if !req.Complete() {
		generations.WithLabelValues("invalid").Inc()
		return "", fmt.Errorf("%w: Missing required fields.", domain.ErrValidation)
	}
	if s.completer == nil {
		generations.WithLabelValues("unavailable").Inc()
		return "", fmt.Errorf("%w: completion gateway is not configured", domain.ErrUnavailable)
	}

	start := time.Now()
	out, err := s.completer.Complete(ctx, systemPrompt, buildPrompt(req), s.temperature)
	generationSeconds.Observe(time.Since(start).Seconds())
	if err != nil {
		generations.WithLabelValues("gateway_error").Inc()
		return "", fmt.Errorf("%w: %w", domain.ErrGateway, err)
	}

	itinerary := strings.TrimSpace(out)
	if itinerary == "" {
		generations.WithLabelValues("empty").Inc()
		return "", fmt.Errorf("%w: No itinerary returned from the completion gateway.", domain.ErrEmptyResult)
	}
	generations.WithLabelValues("ok").Inc()
	return itinerary, nil
}

// buildPrompt embeds the request fields. The traveler type is coerced into
// the closed set so free-form client text never reaches the model.
func buildPrompt(req domain.ItineraryRequest) string {
	return fmt.Sprintf(promptTemplate,
		strings.TrimSpace(req.Destination),
		strings.TrimSpace(req.Budget),
		strings.TrimSpace(req.StartDate),
		strings.TrimSpace(req.EndDate),
		domain.ParseTravelerType(req.TravelerType),
	)
}
