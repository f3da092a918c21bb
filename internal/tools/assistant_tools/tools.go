package assistant_tools

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"go.opentelemetry.io/otel/attribute"

	"github.com/voicecal/voicecal/internal/assistant"
	"github.com/voicecal/voicecal/internal/calendar"
	"github.com/voicecal/voicecal/internal/instrumentation"
	"github.com/voicecal/voicecal/internal/server"
	"github.com/voicecal/voicecal/internal/tools/common"
)

// RegisterAssistantTools registers the conversational assistant tools with
// the MCP server.
func RegisterAssistantTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	processTool := mcp.NewTool("assistant_process",
		mcp.WithDescription("Process one natural-language calendar request (create, move, cancel, or query events) and return the assistant's reply. Follow-up turns for the same account continue the same conversation, so a pending confirmation can be answered with a plain 'yes' or 'no'."),
		mcp.WithString("account",
			mcp.Description("Account name (default: 'default'). Used to manage multiple Google accounts."),
		),
		mcp.WithString("text",
			mcp.Required(),
			mcp.Description("What the user said, e.g. 'schedule lunch with Anna tomorrow at noon'"),
		),
	)

	s.AddTool(processTool, common.InstrumentedToolHandler("assistant_process", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleProcess(ctx, request, sc)
		}))

	resetTool := mcp.NewTool("assistant_reset",
		mcp.WithDescription("Reset the assistant conversation for an account, discarding any pending confirmation or clarification"),
		mcp.WithString("account",
			mcp.Description("Account name (default: 'default'). Used to manage multiple Google accounts."),
		),
	)

	s.AddTool(resetTool, common.InstrumentedToolHandler("assistant_reset", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleReset(ctx, request, sc)
		}))

	listEventsTool := mcp.NewTool("calendar_list_events",
		mcp.WithDescription("List calendar events within a time range"),
		mcp.WithString("account",
			mcp.Description("Account name (default: 'default'). Used to manage multiple Google accounts."),
		),
		mcp.WithString("calendarId",
			mcp.Description("Calendar ID (use 'primary' for primary calendar)"),
		),
		mcp.WithString("timeMin",
			mcp.Required(),
			mcp.Description("Start time for the range (RFC3339 format, e.g., '2025-01-01T00:00:00Z')"),
		),
		mcp.WithString("timeMax",
			mcp.Required(),
			mcp.Description("End time for the range (RFC3339 format, e.g., '2025-01-31T23:59:59Z')"),
		),
		mcp.WithString("query",
			mcp.Description("Optional search text to filter events"),
		),
	)

	s.AddTool(listEventsTool, common.InstrumentedCalendarToolHandler("calendar_list_events", instrumentation.OperationList, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleListEvents(ctx, request, sc)
		}))

	return nil
}

func handleProcess(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	account := common.GetAccountFromArgs(args)

	text, ok := args["text"].(string)
	if !ok || strings.TrimSpace(text) == "" {
		return mcp.NewToolResultError("text is required"), nil
	}

	session, err := sc.SessionForAccount(account)
	if err != nil {
		var notAuth *server.NotAuthorizedError
		if errors.As(err, &notAuth) {
			return mcp.NewToolResultError(authInstructions(account)), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("Failed to open session for account %s: %v", account, err)), nil
	}

	ctx, span := instrumentation.StartTurnSpan(ctx, "",
		attribute.String(instrumentation.SpanAttrAccount, account))
	defer span.End()

	start := time.Now()
	out, err := session.Process(ctx, text)
	duration := time.Since(start)

	if out != nil {
		span.SetAttributes(
			attribute.String(instrumentation.SpanAttrTurn, out.TurnID),
			attribute.String(instrumentation.SpanAttrOutcome, string(out.Kind)),
		)
	}
	if err != nil {
		instrumentation.SetSpanError(span, err)
	} else {
		instrumentation.SetSpanSuccess(span)
	}

	recordTurn(ctx, sc, text, out, err, duration)

	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to process request: %v", err)), nil
	}
	return mcp.NewToolResultText(out.Reply), nil
}

// recordTurn emits the turn metric and audit record. Both sinks are optional.
func recordTurn(ctx context.Context, sc *server.ServerContext, utterance string, out *assistant.Outcome, err error, duration time.Duration) {
	outcome := instrumentation.StatusError
	turnID := ""
	eventID := ""
	actionKind := ""
	if out != nil {
		outcome = string(out.Kind)
		turnID = out.TurnID
		eventID = out.EventID
		actionKind = out.ActionKind
	}

	if metrics := sc.Metrics(); metrics != nil {
		metrics.RecordTurn(ctx, outcome, duration)
	}

	if audit := sc.AuditLogger(); audit != nil {
		record := instrumentation.NewTurnRecord(turnID, utterance).WithSpanContext(ctx)
		if actionKind != "" {
			record.WithAction(actionKind)
		}
		record.Complete(outcome, eventID, err)
		audit.LogTurn(record)
	}
}

func handleReset(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	account := common.GetAccountFromArgs(request.GetArguments())
	sc.ResetSession(account)
	return mcp.NewToolResultText(fmt.Sprintf("Conversation for account %q reset.", account)), nil
}

func handleListEvents(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	account := common.GetAccountFromArgs(args)

	calendarID := "primary"
	if calIDVal, ok := args["calendarId"].(string); ok && calIDVal != "" {
		calendarID = calIDVal
	}

	timeMinStr, ok := args["timeMin"].(string)
	if !ok || timeMinStr == "" {
		return mcp.NewToolResultError("timeMin is required"), nil
	}
	timeMin, err := time.Parse(time.RFC3339, timeMinStr)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Invalid timeMin format: %v", err)), nil
	}

	timeMaxStr, ok := args["timeMax"].(string)
	if !ok || timeMaxStr == "" {
		return mcp.NewToolResultError("timeMax is required"), nil
	}
	timeMax, err := time.Parse(time.RFC3339, timeMaxStr)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Invalid timeMax format: %v", err)), nil
	}

	query := ""
	if queryVal, ok := args["query"].(string); ok {
		query = queryVal
	}

	client := sc.CalendarClientForAccount(account)
	if client == nil {
		return mcp.NewToolResultError(authInstructions(account)), nil
	}

	events, err := client.ListEvents(ctx, calendarID, calendar.Query{
		TimeMin: timeMin,
		TimeMax: timeMax,
		Text:    query,
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list events: %v", err)), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d events:\n\n", len(events))
	for i, event := range events {
		fmt.Fprintf(&b, "%d. %s\n", i+1, event.Summary)
		fmt.Fprintf(&b, "   ID: %s\n", event.ID)
		fmt.Fprintf(&b, "   Start: %s\n", event.Start.Format(time.RFC3339))
		fmt.Fprintf(&b, "   End: %s\n", event.End.Format(time.RFC3339))
		if len(event.Attendees) > 0 {
			fmt.Fprintf(&b, "   Attendees: %d\n", len(event.Attendees))
		}
		b.WriteString("\n")
	}

	return mcp.NewToolResultText(b.String()), nil
}

func authInstructions(account string) string {
	authURL := calendar.GetAuthURLForAccount(account)
	return fmt.Sprintf(`Google OAuth token not found for account "%s". To authorize access:

1. Visit this URL in your browser:
   %s

2. Sign in with your Google account
3. Grant access to Google Calendar
4. Copy the authorization code

5. Call the google_save_auth_code tool with the code and account name to complete authentication.

Note: You only need to authorize once. The tokens will be automatically refreshed.`, account, authURL)
}
