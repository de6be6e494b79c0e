package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/calassist/internal/session"
	"github.com/teemow/calassist/internal/tools/calendar_tools"
)

// Tool categories in the generated reference.
const (
	categoryReading  = "Reading Tools"
	categoryChanging = "Changing Tools"
)

func newGenerateDocsCmd() *cobra.Command {
	var (
		outputFile string
	)

	cmd := &cobra.Command{
		Use:   "generate-docs",
		Short: "Generate calendar tool documentation",
		Long: `Generate markdown documentation for the calendar tools.
This command registers the tools on an MCP server and renders their JSON
schemas, so the documentation always matches what the model and MCP clients
are offered.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerateDocs(cmd.OutOrStdout(), outputFile)
		},
	}

	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")

	return cmd
}

func runGenerateDocs(stdout io.Writer, outputFile string) error {
	tools, err := registeredTools()
	if err != nil {
		return err
	}

	markdown, err := generateToolsMarkdown(tools)
	if err != nil {
		return err
	}

	if outputFile != "" {
		if err := os.WriteFile(outputFile, []byte(markdown), 0644); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Documentation written to: %s\n", outputFile)
		return nil
	}
	_, err = io.WriteString(stdout, markdown)
	return err
}

// registeredTools returns the tools as an MCP client would list them. No
// calendar provider is needed since nothing is dispatched.
func registeredTools() ([]mcp.Tool, error) {
	store := session.NewMemoryStore()
	defer func() { _ = store.Close() }()

	mcpSrv := mcpserver.NewMCPServer("calassist", version,
		mcpserver.WithToolCapabilities(true),
	)
	dispatcher := calendar_tools.NewDispatcher(nil, store)
	if err := calendar_tools.RegisterCalendarTools(mcpSrv, dispatcher, nil, false); err != nil {
		return nil, fmt.Errorf("failed to register calendar tools: %w", err)
	}

	serverTools := mcpSrv.ListTools()
	tools := make([]mcp.Tool, 0, len(serverTools))
	for _, serverTool := range serverTools {
		tools = append(tools, serverTool.Tool)
	}
	return tools, nil
}

func generateToolsMarkdown(tools []mcp.Tool) (string, error) {
	var sb strings.Builder

	// Header
	sb.WriteString("# Calendar Tools Reference\n\n")
	sb.WriteString("This document lists the tools the assistant offers to the language model and, with `serve --mcp-transport`, to MCP clients.\n\n")
	sb.WriteString("**Note:** This documentation is automatically generated from the tool definitions.\n\n")

	toolsByCategory := groupToolsByCategory(tools)
	categories := make([]string, 0, len(toolsByCategory))
	for category := range toolsByCategory {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	// Table of contents
	sb.WriteString("## Table of Contents\n\n")
	for _, category := range categories {
		anchor := strings.ToLower(strings.ReplaceAll(category, " ", "-"))
		sb.WriteString(fmt.Sprintf("- [%s](#%s)\n", category, anchor))
	}
	sb.WriteString("\n")

	sb.WriteString("## Staged Changes\n\n")
	sb.WriteString("Changing tools never write on the first call. They return a preview with `need_confirm`; ")
	sb.WriteString("the change runs when the same tool is called again with `confirmed: true`. ")
	sb.WriteString("When attendees are involved a second question, `need_notify_choice`, is answered with `notify_attendees`.\n\n")

	sb.WriteString("## Sessions\n\n")
	sb.WriteString("Every tool accepts an optional `session_id`. Index arguments (`index`, `indexes`) refer to the last list shown in that session.\n\n")

	for _, category := range categories {
		categoryTools := toolsByCategory[category]
		sort.Slice(categoryTools, func(i, j int) bool {
			return categoryTools[i].Name < categoryTools[j].Name
		})

		sb.WriteString(fmt.Sprintf("## %s\n\n", category))

		for _, tool := range categoryTools {
			md, err := generateToolMarkdown(tool)
			if err != nil {
				return "", err
			}
			sb.WriteString(md)
			sb.WriteString("\n")
		}
	}

	return sb.String(), nil
}

func groupToolsByCategory(tools []mcp.Tool) map[string][]mcp.Tool {
	categories := make(map[string][]mcp.Tool)
	for _, tool := range tools {
		category := categoryChanging
		if hint := tool.Annotations.ReadOnlyHint; hint != nil && *hint {
			category = categoryReading
		}
		categories[category] = append(categories[category], tool)
	}
	return categories
}

// toolSchema returns the input schema of tool, decoding a raw schema when
// the tool was registered with one.
func toolSchema(tool mcp.Tool) (mcp.ToolInputSchema, error) {
	if len(tool.RawInputSchema) == 0 {
		return tool.InputSchema, nil
	}
	var schema mcp.ToolInputSchema
	if err := json.Unmarshal(tool.RawInputSchema, &schema); err != nil {
		return schema, fmt.Errorf("failed to decode schema of %s: %w", tool.Name, err)
	}
	return schema, nil
}

func generateToolMarkdown(tool mcp.Tool) (string, error) {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("### %s\n\n", tool.Name))
	if tool.Description != "" {
		sb.WriteString(fmt.Sprintf("%s\n\n", tool.Description))
	}

	schema, err := toolSchema(tool)
	if err != nil {
		return "", err
	}

	if len(schema.Properties) > 0 {
		sb.WriteString("**Arguments:**\n")
		writeProperties(&sb, schema.Properties, schema.Required, "")
		sb.WriteString("\n")
	}

	return sb.String(), nil
}

// writeProperties renders properties sorted by name. Object properties list
// their own fields one level deeper.
func writeProperties(sb *strings.Builder, properties map[string]any, required []string, indent string) {
	propNames := make([]string, 0, len(properties))
	for name := range properties {
		propNames = append(propNames, name)
	}
	sort.Strings(propNames)

	for _, name := range propNames {
		propMap, ok := properties[name].(map[string]any)
		if !ok {
			continue
		}

		requiredStr := "optional"
		if contains(required, name) {
			requiredStr = "required"
		}
		propType := getPropertyType(propMap)

		sb.WriteString(fmt.Sprintf("%s- `%s` (%s, %s): ", indent, name, propType, requiredStr))
		if desc, ok := propMap["description"].(string); ok {
			sb.WriteString(desc)
		} else {
			sb.WriteString(fmt.Sprintf("%s parameter", propType))
		}
		sb.WriteString("\n")

		if nested, ok := propMap["properties"].(map[string]any); ok && indent == "" {
			writeProperties(sb, nested, stringList(propMap["required"]), indent+"  ")
		}
	}
}

func getPropertyType(prop map[string]any) string {
	switch t := prop["type"].(type) {
	case string:
		if t == "array" {
			if items, ok := prop["items"].(map[string]any); ok {
				if it, ok := items["type"].(string); ok {
					return it + "[]"
				}
			}
		}
		return t
	case []any:
		parts := make([]string, 0, len(t))
		for _, v := range t {
			if s, ok := v.(string); ok {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, "|")
	}
	if _, ok := prop["oneOf"]; ok {
		return "oneOf"
	}
	if _, ok := prop["anyOf"]; ok {
		return "anyOf"
	}
	return "any"
}

func stringList(v any) []string {
	raw, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
