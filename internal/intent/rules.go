package intent

import (
	"regexp"
	"strings"
)

// Tool names the default rules route to. The registry registers handlers
// under the same keys.
const (
	ToolTime          = "time.now"
	ToolSystemInfo    = "system.info"
	ToolCalculator    = "calc.eval"
	ToolRemember      = "memory.remember"
	ToolMemoryStats   = "memory.stats"
	ToolTelegramAlert = "telegram.alert"
	ToolVolumeUp      = "volume.up"
	ToolVolumeDown    = "volume.down"
	ToolOpenApp       = "app.open"
	ToolWebSearch     = "web.search"
	ToolExec          = "system.exec"
	ToolShutdown      = "system.shutdown"
)

var (
	rememberLead  = regexp.MustCompile(`(?i)^(please\s+)?(remember|store|save)\s+(that|this)?\s*`)
	recallLead    = regexp.MustCompile(`(?i)^(do you remember|what do you know about|what do you remember about|recall)\s*`)
	calcLead      = regexp.MustCompile(`(?i)(calculate|compute|what is|what's|how much is)`)
	alertLead     = regexp.MustCompile(`(?i)^(notify|alert|remind)\s+me\s*(that|to)?\s*`)
	openLead      = regexp.MustCompile(`(?i)^(open|launch|start)\s+`)
	execLead      = regexp.MustCompile(`(?i)^(run|execute)\s+(the\s+)?command\s*`)
	searchLead    = regexp.MustCompile(`(?i)^(search( the web)?( for)?|look up|google)\s+`)
	trailingPunct = regexp.MustCompile(`[.?!]+$`)

	preferenceMarkers = regexp.MustCompile(`(?i)\b(favorite|favourite|prefer|like|love|hate)\b`)
)

// DefaultRules returns the built-in rule table. Priorities are spaced so
// deployments can interleave their own rules without renumbering.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name:     "time",
			Priority: 10,
			Pattern:  regexp.MustCompile(`\bwhat( is|'s)? the (time|date)\b|\bwhat (time|date) is it\b|\bcurrent (time|date)\b`),
			Kind:     KindToolCall,
			Tool:     ToolTime,
			Extract:  extractTimeFormat,
		},
		{
			Name:     "system-info",
			Priority: 20,
			Pattern:  regexp.MustCompile(`\bsystem (info|information|status)\b|\bhow (is|are) (the|my) system\b`),
			Kind:     KindToolCall,
			Tool:     ToolSystemInfo,
		},
		{
			Name:     "memory-stats",
			Priority: 30,
			Pattern:  regexp.MustCompile(`\bmemory (stats|statistics|status)\b`),
			Kind:     KindToolCall,
			Tool:     ToolMemoryStats,
		},
		{
			Name:     "remember",
			Priority: 40,
			Pattern:  regexp.MustCompile(`^(please )?(remember|store|save) (that|this)\b`),
			Kind:     KindToolCall,
			Tool:     ToolRemember,
			Extract:  extractRemember,
			Required: []string{"information"},
		},
		{
			Name:     "recall",
			Priority: 50,
			Pattern:  regexp.MustCompile(`^(do you remember|recall|what do you (know|remember) about)\b`),
			Kind:     KindMemoryQuery,
			Extract:  extractRecall,
			Required: []string{"query"},
		},
		{
			Name:     "calculator",
			Priority: 60,
			Pattern:  regexp.MustCompile(`(calculate|compute|what is|how much is)\s.*\d|\d+\s*[-+*/]\s*\d+`),
			Kind:     KindToolCall,
			Tool:     ToolCalculator,
			Extract:  extractExpression,
			Required: []string{"expression"},
		},
		{
			Name:     "telegram-alert",
			Priority: 70,
			Pattern:  regexp.MustCompile(`^(notify|alert|remind) me\b`),
			Kind:     KindToolCall,
			Tool:     ToolTelegramAlert,
			Extract:  extractAlertMessage,
			Required: []string{"message"},
		},
		{
			Name:     "volume-up",
			Priority: 80,
			Pattern:  regexp.MustCompile(`\b(increase|raise|turn up)( the)? volume\b|\bvolume up\b|\blouder\b`),
			Kind:     KindToolCall,
			Tool:     ToolVolumeUp,
		},
		{
			Name:     "volume-down",
			Priority: 81,
			Pattern:  regexp.MustCompile(`\b(decrease|lower|turn down)( the)? volume\b|\bvolume down\b|\bquieter\b`),
			Kind:     KindToolCall,
			Tool:     ToolVolumeDown,
		},
		{
			Name:     "web-search",
			Priority: 85,
			Pattern:  regexp.MustCompile(`^(search( the web)?( for)?|look up|google)\s+\S+`),
			Kind:     KindToolCall,
			Tool:     ToolWebSearch,
			Extract:  extractSearchQuery,
			Required: []string{"query"},
		},
		{
			Name:     "exec-command",
			Priority: 90,
			Pattern:  regexp.MustCompile(`^(run|execute) (the )?command\b`),
			Kind:     KindToolCall,
			Tool:     ToolExec,
			Extract:  extractCommand,
			Required: []string{"command"},
		},
		{
			Name:     "shutdown-system",
			Priority: 95,
			Pattern:  regexp.MustCompile(`\b(shut down|shutdown|power off|reboot|restart) (the )?(computer|system|machine|pc)\b`),
			Kind:     KindToolCall,
			Tool:     ToolShutdown,
		},
		{
			// Broad catch-all, deliberately last among tool rules
			Name:     "open-app",
			Priority: 100,
			Pattern:  regexp.MustCompile(`^(open|launch|start)\s+\S+`),
			Kind:     KindToolCall,
			Tool:     ToolOpenApp,
			Extract:  extractApp,
			Required: []string{"app"},
		},
	}
}

func extractTimeFormat(text string) map[string]string {
	lower := strings.ToLower(text)
	hasTime := strings.Contains(lower, "time")
	hasDate := strings.Contains(lower, "date")

	format := "full"
	switch {
	case hasTime && !hasDate:
		format = "time"
	case hasDate && !hasTime:
		format = "date"
	}
	return map[string]string{"format": format}
}

func extractRemember(text string) map[string]string {
	info := strings.TrimSpace(rememberLead.ReplaceAllString(text, ""))
	info = strings.TrimSpace(trailingPunct.ReplaceAllString(info, ""))

	category := "fact"
	if preferenceMarkers.MatchString(info) {
		category = "preference"
	}

	return map[string]string{
		"information": info,
		"category":    category,
	}
}

func extractRecall(text string) map[string]string {
	query := strings.TrimSpace(recallLead.ReplaceAllString(text, ""))
	query = strings.TrimSpace(trailingPunct.ReplaceAllString(query, ""))
	return map[string]string{"query": query}
}

func extractExpression(text string) map[string]string {
	expr := strings.ToLower(text)
	expr = calcLead.ReplaceAllString(expr, "")
	expr = strings.NewReplacer(
		"plus", "+",
		"minus", "-",
		"times", "*",
		"multiplied by", "*",
		"divided by", "/",
	).Replace(expr)
	expr = strings.TrimSpace(trailingPunct.ReplaceAllString(expr, ""))

	// Keep only characters the evaluator accepts
	var sb strings.Builder
	for _, r := range expr {
		if r >= '0' && r <= '9' || strings.ContainsRune("+-*/().% ", r) {
			sb.WriteRune(r)
		}
	}
	return map[string]string{"expression": strings.TrimSpace(sb.String())}
}

func extractAlertMessage(text string) map[string]string {
	msg := strings.TrimSpace(alertLead.ReplaceAllString(text, ""))
	msg = strings.TrimSpace(trailingPunct.ReplaceAllString(msg, ""))
	return map[string]string{"message": msg}
}

func extractApp(text string) map[string]string {
	app := strings.TrimSpace(openLead.ReplaceAllString(text, ""))
	app = strings.TrimSpace(trailingPunct.ReplaceAllString(app, ""))
	return map[string]string{"app": strings.ToLower(app)}
}

func extractSearchQuery(text string) map[string]string {
	query := strings.TrimSpace(searchLead.ReplaceAllString(text, ""))
	query = strings.TrimSpace(trailingPunct.ReplaceAllString(query, ""))
	return map[string]string{"query": query}
}

func extractCommand(text string) map[string]string {
	cmd := strings.TrimSpace(execLead.ReplaceAllString(text, ""))
	cmd = strings.TrimSpace(trailingPunct.ReplaceAllString(cmd, ""))
	return map[string]string{"command": cmd}
}
