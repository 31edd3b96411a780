package gcp

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/vertexai/genai"
	"google.golang.org/api/option"
)

// entityJSONShape is shared by both extraction prompts.
const entityJSONShape = `{
    "PATTA_HOLDER_NAME": [],
    "PATTA_NUMBER": [],
    "CLAIM_STATUS": [],
    "PERSON": [],
    "PLACE_NAME": [],
    "ORGANIZATION": [],
    "COORDINATES": [],
    "DATE": [],
    "LAND_AREA": [],
    "SURVEY_NUMBER": [],
    "ADDRESS": [],
    "PHONE_NUMBER": [],
    "EMAIL": []
}`

const entityTypes = `ENTITY TYPES TO EXTRACT:
- PATTA_HOLDER_NAME: Primary land title holder names, main applicant names
- PATTA_NUMBER: Patta numbers, land title numbers, document numbers (PAT-XXX, REG-XXX, etc.)
- CLAIM_STATUS: Application status like 'granted', 'pending', 'approved', 'rejected', 'verified'
- PERSON: Other person names (family members, witnesses, officers - excluding main patta holders)
- PLACE_NAME: Villages, cities, districts, states, countries
- ORGANIZATION: Government departments, committees, institutions
- COORDINATES: Latitude/longitude, GPS coordinates
- DATE: All dates in any format
- LAND_AREA: Area measurements (hectares, acres, sq meters)
- SURVEY_NUMBER: Land survey numbers
- ADDRESS: Complete addresses or location descriptions
- PHONE_NUMBER: Contact numbers
- EMAIL: Email addresses`

// --- Translate+NER Model Prompts ---
const TranslateExtractSystemPrompt = "You are an expert multilingual NER system for official land-rights documents issued under the Forest Rights Act. You read documents in any Indian language, translate them to English internally, and return the entities as a JSON object."
const TranslateExtractUserPrompt = `The following document text may be in Telugu, Hindi, Tamil or another language. Translate it to English internally, then extract the entities.

` + entityTypes + `

Return ONLY a JSON object of exactly this shape, with entity values written in English:
` + entityJSONShape + `

DOCUMENT TEXT:
`

// --- NER Model Prompts ---
const ExtractSystemPrompt = "You are an expert multilingual NER system specialized in official government documents worldwide. You must output your response as a valid JSON object."
const ExtractUserPrompt = `Extract entities from this document text (it may have been translated from any language to English).

INSTRUCTIONS:
1. Extract ALL entities even if names seem unusual due to transliteration
2. Look for patterns that indicate official document entities regardless of language origin
3. Be extra careful with proper names that may have been transliterated

` + entityTypes + `

RETURN FORMAT - EXACT JSON:
` + entityJSONShape + `

CRITICAL RULES:
- Include ALL potential names even if spelling seems unusual
- Extract numbers with prefixes/suffixes as document numbers
- Return ONLY valid JSON, no explanations

DOCUMENT TEXT:
`

// --- Chat Model Prompts ---
const ChatSystemPrompt = `You are an expert assistant for the Forest Rights Act (FRA) Decision Support System focusing exclusively on Central Sector Schemes (CSS).

INSTRUCTIONS:
- Only discuss Central Sector Schemes like PM-KISAN, MGNREGA, Jal Jeevan Mission, Ayushman Bharat PM-JAY, PMAY-G, PM-KUSUM, Swachh Bharat Mission, etc.
- Provide specific eligibility criteria, application processes, and benefits.
- Reference the user's extracted data when relevant (name, location, land area, etc.)
- Keep responses concise (2-4 sentences)
- Include actionable next steps
- Use a helpful, professional tone`

// VertexClient holds all pre-configured generative models for our app.
type VertexClient struct {
	TranslateExtractModel *genai.GenerativeModel
	ExtractModel          *genai.GenerativeModel
	ChatModel             *genai.GenerativeModel
	baseClient            *genai.Client
}

// NewVertexClient creates a new client holding all necessary models.
func NewVertexClient(ctx context.Context, projectID, region, modelName string, opts ...option.ClientOption) (*VertexClient, error) {
	if projectID == "" || region == "" {
		return nil, fmt.Errorf("NewVertexClient: projectID and region cannot be empty")
	}
	if modelName == "" {
		modelName = "gemini-1.5-pro"
	}

	baseClient, err := genai.NewClient(ctx, projectID, region, opts...)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}

	translateExtractModel := baseClient.GenerativeModel(modelName)
	configureJSONModel(translateExtractModel, TranslateExtractSystemPrompt)

	extractModel := baseClient.GenerativeModel(modelName)
	configureJSONModel(extractModel, ExtractSystemPrompt)

	chatModel := baseClient.GenerativeModel(modelName)
	chatModel.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(ChatSystemPrompt)},
	}
	chatModel.GenerationConfig = genai.GenerationConfig{
		Temperature: genai.Ptr[float32](0.4),
	}

	return &VertexClient{
		TranslateExtractModel: translateExtractModel,
		ExtractModel:          extractModel,
		ChatModel:             chatModel,
		baseClient:            baseClient,
	}, nil
}

func configureJSONModel(m *genai.GenerativeModel, systemPrompt string) {
	m.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(systemPrompt)},
	}
	m.GenerationConfig = genai.GenerationConfig{
		// Force JSON output.
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr[float32](0.0),
	}
	// Land records name people and places; nothing here should be blocked.
	m.SafetySettings = []*genai.SafetySetting{
		{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockNone},
	}
}

// ResponseText concatenates the text parts of the first candidate.
func ResponseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}
	return strings.TrimSpace(b.String())
}

func (c *VertexClient) Close() error {
	if c.baseClient != nil {
		return c.baseClient.Close()
	}
	return nil
}
