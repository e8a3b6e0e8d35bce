package model

import "time"

// ================ Config ================
type ConversationConfig struct {
	TTL     time.Duration `envconfig:"CONVERSATION_TTL" default:"30m"`
	History struct {
		// MaxMessages bounds the chat history window rendered into the prompt.
		MaxMessages int `envconfig:"CONVERSATION_HISTORY_MAX_MESSAGES" default:"20"`
		// MaxStored caps how many messages a session keeps in either backend.
		MaxStored int `envconfig:"CONVERSATION_HISTORY_MAX_STORED" default:"200"`
	}
	Tools struct {
		MaxCalls int `envconfig:"CONVERSATION_TOOL_MAX_CALLS" default:"5"`
	}
}

type ResponseModelConfig struct {
	Model          string  `envconfig:"RESPONSE_MODEL" default:"gemini-2.5-flash"`
	MaxTokens      int     `envconfig:"RESPONSE_MAX_TOKENS" default:"2000"`
	Temperature    float32 `envconfig:"RESPONSE_TEMPERATURE" default:"0.3"`
	ThinkingBudget int32   `envconfig:"RESPONSE_THINKING_BUDGET" default:"1024"`
}

type RetrievalConfig struct {
	Collection     string `envconfig:"RETRIEVAL_COLLECTION" default:"doctors-appointments"`
	TopK           int    `envconfig:"RETRIEVAL_TOP_K" default:"2"`
	EmbeddingModel string `envconfig:"EMBEDDING_MODEL" default:"gemini-embedding-001"`
	Namespace      string `envconfig:"RECORD_MANAGER_NAMESPACE" default:"qdrant/doctors/"`
}

type PromptConfig struct {
	HospitalName string `envconfig:"PROMPT_HOSPITAL_NAME" default:"City Care Hospital"`
}
