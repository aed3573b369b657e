package dbchat

import (
	"strings"

	"github.com/datadeck-io/datadeck-api/internal/models"
	"github.com/datadeck-io/datadeck-api/internal/utils"
)

// dialectName maps an engine kind to the SQL dialect (or query language)
// the model should answer in.
func dialectName(kind models.EngineKind) string {
	switch kind {
	case models.EnginePostgreSQL, models.EngineSupabase:
		return "PostgreSQL"
	case models.EngineMySQL:
		return "MySQL"
	case models.EngineMongoDB:
		return "MongoDB (aggregation pipeline syntax)"
	default:
		return "ANSI SQL"
	}
}

// buildPrompt assembles the provider prompt from the question, the data
// source's dialect and the optional schema snippet. Credentials are never
// part of the prompt; only name, kind and database name identify the
// target.
func buildPrompt(ds *models.DataSource, req *models.DBChatRequest) string {
	buf := utils.GetBuffer()
	defer utils.PutBuffer(buf)

	_, _ = buf.WriteString("You are a database assistant for the ")
	_, _ = buf.WriteString(dialectName(ds.Kind))
	_, _ = buf.WriteString(" database \"")
	_, _ = buf.WriteString(ds.Database)
	_, _ = buf.WriteString("\".\n")
	_, _ = buf.WriteString("Answer concisely. When a query is the answer, wrap it in a fenced ```sql block.\n\n")

	if req.Schema != "" {
		_, _ = buf.WriteString("Schema:\n")
		_, _ = buf.WriteString(req.Schema)
		_, _ = buf.WriteString("\n\n")
	}

	_, _ = buf.WriteString("Question: ")
	_, _ = buf.WriteString(req.Question)

	return buf.String()
}

// extractSQL pulls the first fenced sql block out of a model answer, if
// one exists.
func extractSQL(answer string) string {
	const fence = "```sql"
	start := strings.Index(answer, fence)
	if start < 0 {
		return ""
	}
	rest := answer[start+len(fence):]
	end := strings.Index(rest, "```")
	if end < 0 {
		return ""
	}
	return strings.TrimSpace(rest[:end])
}
