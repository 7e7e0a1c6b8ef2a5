package conversation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bizlink-ai/concierge-platform/internal/classifier"
	"github.com/bizlink-ai/concierge-platform/internal/corpus"
	"github.com/bizlink-ai/concierge-platform/internal/observability/metrics"
	"github.com/bizlink-ai/concierge-platform/internal/templates"
	"github.com/bizlink-ai/concierge-platform/pkg/logging"
)

// SourceStage tags which mechanism produced a reply.
type SourceStage string

const (
	SourceFiltered           SourceStage = "filtered"
	SourceAppointmentTrigger SourceStage = "appointment_trigger"
	SourceSimilarityMatch    SourceStage = "similarity_match"
	SourceGenerative         SourceStage = "generative"
	SourceTemplateFallback   SourceStage = "template_fallback"
	SourceGenericFallback    SourceStage = "generic_fallback"
)

// Message is an inbound user message.
type Message struct {
	Text      string
	OrgID     string
	SessionID string
	Timestamp time.Time
}

// Reply is the router's answer for one turn.
type Reply struct {
	Text                string
	Category            classifier.Category
	ShowAppointmentForm bool
	Stage               SourceStage
}

// schedulingTriggers detect booking intent. Matched as whole phrases,
// case-insensitively.
var schedulingTriggers = []string{
	"schedule", "book", "appointment", "reschedule", "availability", "available times",
}

// greetingPrefixes are stripped from replies past the first turn so the
// assistant does not re-greet a customer mid-conversation.
var greetingPrefixes = []string{"hi", "hello", "hey"}

const prohibitedReply = "I'm sorry, but we aren't able to support that line of business. Is there anything else I can help you with?"

// categoryTemplates are the stage-5 fallback responses, keyed by business
// category and rendered once against the tenant profile at construction.
var categoryTemplates = map[classifier.Category]string{
	classifier.CategoryHealthcare: "{{.BusinessName}} works with healthcare practices every day. We can handle patient questions and appointment requests for you. Our services include {{.ServiceList}}. How can I help your practice?",
	classifier.CategoryBeauty:     "Great to hear from a beauty business! {{.BusinessName}} helps salons and spas manage client conversations and bookings. We offer {{.ServiceList}}. What would you like to know?",
	classifier.CategoryRestaurant: "{{.BusinessName}} helps restaurants and cafes handle reservations and customer questions. We offer {{.ServiceList}}. What can I help you with?",
	classifier.CategoryFitness:    "{{.BusinessName}} supports gyms and studios with class bookings and member questions. We offer {{.ServiceList}}. How can I help?",
	classifier.CategoryAutomotive: "{{.BusinessName}} helps automotive shops manage service bookings and customer questions. We offer {{.ServiceList}}. What would you like to know?",
	classifier.CategoryLegal:      "{{.BusinessName}} helps law practices handle client intake and consultation scheduling. We offer {{.ServiceList}}. How can I assist?",
	classifier.CategoryRealEstate: "{{.BusinessName}} helps real estate professionals manage client inquiries and showings. We offer {{.ServiceList}}. What can I do for you?",
	classifier.CategoryRetail:     "{{.BusinessName}} helps retail businesses answer customer questions and manage appointments. We offer {{.ServiceList}}. How can I help?",
	classifier.CategoryGeneral:    "Hi! I'm the assistant for {{.BusinessName}}. We offer {{.ServiceList}}. Ask me anything, or say \"book an appointment\" to get started.",
}

const genericTemplate = "Thanks for reaching out to {{.BusinessName}}! I'm here to help with questions and appointments. What can I do for you?"

const appointmentPromptTemplate = "I'd be happy to get you booked with {{.BusinessName}}! Please fill out the appointment form with your name, contact details, preferred date and time, and the services you're interested in."

// Router orchestrates the tiered response chain: prohibited filter →
// scheduling trigger → corpus similarity → generative fallback → category
// template → generic template. The final stage never fails, so Route always
// returns non-empty text.
type Router struct {
	classifier *classifier.Classifier
	matcher    *corpus.Matcher
	generative *GenerativeAdapter
	sessions   SessionStore
	logger     *logging.Logger
	metrics    *metrics.ConversationMetrics

	profile           templates.TenantProfile
	categoryResponses map[classifier.Category]string
	genericResponse   string
	appointmentPrompt string
}

// RouterConfig wires the router's collaborators.
type RouterConfig struct {
	Classifier *classifier.Classifier
	Matcher    *corpus.Matcher
	Generative *GenerativeAdapter
	Sessions   SessionStore
	Profile    templates.TenantProfile
	Logger     *logging.Logger
	Metrics    *metrics.ConversationMetrics
}

// NewRouter constructs a router, rendering all tenant templates up front so
// a bad template fails at startup rather than mid-conversation.
func NewRouter(cfg RouterConfig) (*Router, error) {
	if cfg.Classifier == nil {
		return nil, fmt.Errorf("conversation: classifier required")
	}
	if cfg.Matcher == nil {
		return nil, fmt.Errorf("conversation: matcher required")
	}
	if cfg.Sessions == nil {
		return nil, fmt.Errorf("conversation: session store required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.Generative == nil {
		cfg.Generative = NewGenerativeAdapter(nil, "", 0)
	}

	var renderer templates.Renderer
	rendered := make(map[classifier.Category]string, len(categoryTemplates))
	for category, tmpl := range categoryTemplates {
		text, err := renderer.Render(string(category), tmpl, cfg.Profile)
		if err != nil {
			return nil, fmt.Errorf("conversation: render %s template: %w", category, err)
		}
		rendered[category] = text
	}
	generic, err := renderer.Render("generic", genericTemplate, cfg.Profile)
	if err != nil {
		return nil, fmt.Errorf("conversation: render generic template: %w", err)
	}
	prompt, err := renderer.Render("appointment_prompt", appointmentPromptTemplate, cfg.Profile)
	if err != nil {
		return nil, fmt.Errorf("conversation: render appointment prompt: %w", err)
	}

	return &Router{
		classifier:        cfg.Classifier,
		matcher:           cfg.Matcher,
		generative:        cfg.Generative,
		sessions:          cfg.Sessions,
		logger:            cfg.Logger,
		metrics:           cfg.Metrics,
		profile:           cfg.Profile,
		categoryResponses: rendered,
		genericResponse:   generic,
		appointmentPrompt: prompt,
	}, nil
}

// Route produces a reply for one inbound message and advances the session
// state machine. It never returns empty text.
func (r *Router) Route(ctx context.Context, msg Message) Reply {
	start := time.Now()
	session, err := r.sessions.Get(ctx, msg.OrgID, msg.SessionID)
	if err != nil {
		// A broken session store degrades to stateless routing.
		r.logger.Warn("session load failed, using fresh context", "error", err, "session_id", msg.SessionID)
		session = NewSessionContext(msg.SessionID)
	}
	firstTurn := session.TurnCount == 0

	reply := r.respond(ctx, msg, &session)

	if !firstTurn {
		reply.Text = stripLeadingGreeting(reply.Text)
	}
	if reply.Text == "" {
		reply.Text = r.genericResponse
		reply.Stage = SourceGenericFallback
	}

	session.TurnCount++
	session.LastCategory = reply.Category
	if session.Stage == StageInitial {
		session.Stage = StageContinuing
	}
	if reply.Stage == SourceAppointmentTrigger {
		session.Stage = StageAwaitingAppointment
	}
	if err := r.sessions.Save(ctx, msg.OrgID, msg.SessionID, session); err != nil {
		r.logger.Warn("session save failed", "error", err, "session_id", msg.SessionID)
	}

	r.metrics.ObserveRoute(string(reply.Stage), time.Since(start).Seconds())
	r.logger.Info("message routed",
		"org_id", msg.OrgID,
		"session_id", msg.SessionID,
		"category", reply.Category,
		"stage", reply.Stage,
		"turn", session.TurnCount,
	)
	return reply
}

// respond walks the fallback chain. First success wins.
func (r *Router) respond(ctx context.Context, msg Message, session *SessionContext) Reply {
	result := r.classifier.Classify(msg.Text)

	if result.Prohibited {
		return Reply{Text: prohibitedReply, Category: result.Category, Stage: SourceFiltered}
	}

	if hasSchedulingIntent(msg.Text) {
		return Reply{
			Text:                r.appointmentPrompt,
			Category:            result.Category,
			ShowAppointmentForm: true,
			Stage:               SourceAppointmentTrigger,
		}
	}

	if match, ok := r.matcher.FindBestMatch(msg.Text); ok {
		return Reply{Text: match.Answer, Category: result.Category, Stage: SourceSimilarityMatch}
	}

	if r.generative.Available() {
		text, err := r.generative.Generate(ctx, r.buildPrompt(msg, result.Category, session))
		if err == nil {
			return Reply{Text: text, Category: result.Category, Stage: SourceGenerative}
		}
		r.logger.Debug("generative fallback unavailable", "error", err)
	}

	if text, ok := r.categoryResponses[result.Category]; ok {
		return Reply{Text: text, Category: result.Category, Stage: SourceTemplateFallback}
	}

	return Reply{Text: r.genericResponse, Category: result.Category, Stage: SourceGenericFallback}
}

// CompleteBookingAttempt transitions a session out of AWAITING_APPOINTMENT
// once a booking attempt finishes, whatever its outcome.
func (r *Router) CompleteBookingAttempt(ctx context.Context, orgID, sessionID string) {
	if sessionID == "" {
		return
	}
	session, err := r.sessions.Get(ctx, orgID, sessionID)
	if err != nil {
		r.logger.Warn("session load failed on booking completion", "error", err, "session_id", sessionID)
		return
	}
	if session.Stage != StageAwaitingAppointment {
		return
	}
	session.Stage = StageContinuing
	if err := r.sessions.Save(ctx, orgID, sessionID, session); err != nil {
		r.logger.Warn("session save failed on booking completion", "error", err, "session_id", sessionID)
	}
}

func (r *Router) buildPrompt(msg Message, category classifier.Category, session *SessionContext) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are the virtual assistant for %s.\n", r.profile.BusinessName)
	fmt.Fprintf(&b, "Services offered: %s.\n", r.profile.ServiceList())
	if category != classifier.CategoryGeneral {
		fmt.Fprintf(&b, "The customer appears to run a %s business.\n", category)
	}
	if session.TurnCount > 0 {
		fmt.Fprintf(&b, "This is turn %d of an ongoing conversation; do not greet again.\n", session.TurnCount+1)
	}
	fmt.Fprintf(&b, "Customer message: %s", msg.Text)
	return b.String()
}

// hasSchedulingIntent reports whether the message matches a scheduling
// trigger phrase.
func hasSchedulingIntent(text string) bool {
	lowered := strings.ToLower(text)
	for _, trigger := range schedulingTriggers {
		if strings.Contains(lowered, trigger) {
			return true
		}
	}
	return false
}

// stripLeadingGreeting removes a leading greeting word plus trailing
// punctuation and whitespace. A deterministic text transform, not a stage.
func stripLeadingGreeting(text string) string {
	trimmed := strings.TrimSpace(text)
	lowered := strings.ToLower(trimmed)
	for _, greeting := range greetingPrefixes {
		if !strings.HasPrefix(lowered, greeting) {
			continue
		}
		rest := trimmed[len(greeting):]
		if rest == "" {
			return trimmed
		}
		// The greeting must end at a word boundary: "hey there" strips,
		// "heyday sale" does not.
		if r := rune(rest[0]); r != ' ' && r != ',' && r != '.' && r != '!' && r != ':' {
			continue
		}
		rest = strings.TrimLeft(rest, " ,.!:")
		if rest == "" {
			return trimmed
		}
		// Capitalize the new first letter.
		return strings.ToUpper(rest[:1]) + rest[1:]
	}
	return trimmed
}
