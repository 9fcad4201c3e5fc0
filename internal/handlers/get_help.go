package handlers

import "context"

// HelpSource supplies the static help text get_help serves. Authoring and
// maintaining that text is out of scope for this router; HelpSource exists
// so a real content source can be substituted without touching the handler.
type HelpSource interface {
	Help(topic string) (string, bool)
}

// staticHelpSource is the default HelpSource: a small built-in topic map
// covering the tool surface itself, good enough until a richer source is
// wired in.
type staticHelpSource struct {
	topics map[string]string
}

func (s staticHelpSource) Help(topic string) (string, bool) {
	if topic == "" {
		topic = "overview"
	}
	text, ok := s.topics[topic]
	return text, ok
}

func defaultHelpSource() staticHelpSource {
	return staticHelpSource{topics: map[string]string{
		"overview": "supermcp exposes one MCP server surface over many upstream packages. " +
			"Start with list_tool_packages to see what is configured, list_tools to browse " +
			"a package's tools, and use_tool to call one.",
		"auth": "Packages configured with oauth=true need authenticate before their tools " +
			"report ready; call health_check afterward to confirm.",
	}}
}

// GetHelpResult is get_help's output.
type GetHelpResult struct {
	Topic string
	Text  string
}

// GetHelp looks up static help text for a topic. An empty topic means
// "overview"; an unknown topic is an invalid-params error.
func (h *Handlers) GetHelp(ctx context.Context, topic string) (*GetHelpResult, error) {
	source := h.Help
	if source == nil {
		source = defaultHelpSource()
	}
	text, ok := source.Help(topic)
	if !ok {
		return nil, newError(CodeInvalidParams, "unknown help topic %q", topic)
	}
	if topic == "" {
		topic = "overview"
	}
	return &GetHelpResult{Topic: topic, Text: text}, nil
}
