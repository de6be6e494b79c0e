// Package llm is a small client for OpenAI-compatible chat completion
// endpoints (OpenAI, vLLM, llama-server, Ollama's /v1 surface).
//
// Only the parts of the API the executor needs are modelled: chat messages,
// function tool definitions and tool calls. A call with tools sets
// tool_choice "auto"; a call without tools is a plain completion, which the
// executor uses for its final summary.
//
// Example usage:
//
//	client := llm.NewClient(llm.Config{
//	    BaseURL: "https://api.openai.com/v1",
//	    APIKey:  os.Getenv("LLM_API_KEY"),
//	    Model:   "gpt-4o-mini",
//	}, llm.WithMetrics(metrics))
//
//	resp, err := client.Chat(ctx, messages, tools)
//	if err != nil {
//	    return err
//	}
//	for _, call := range resp.Message.ToolCalls {
//	    fmt.Println(call.Function.Name, call.Function.Arguments)
//	}
package llm
