package providers

// Request body keys of the chat completions API.
const (
	KeyModel          = "model"
	KeyMessages       = "messages"
	KeyTemperature    = "temperature"
	KeyMaxTokens      = "max_tokens"
	KeySeed           = "seed"
	KeyResponseFormat = "response_format"
)

// DefaultSchemaName names a structured response when the request does not.
const DefaultSchemaName = "response"
