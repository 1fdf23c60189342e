package query

// domainExpansions maps a domain trigger to related terms. A query touching a
// domain (by naming it or using its leading terms) is expanded with the first
// few related terms it does not already contain.
var domainExpansions = map[string][]string{
	"financial": {"revenue", "profit", "earnings", "budget", "cost", "expenses", "income"},
	"customer":  {"client", "user", "consumer", "satisfaction", "feedback", "support", "service"},
	"technical": {"development", "code", "programming", "software", "system", "implementation"},
	"business":  {"strategy", "planning", "management", "operations", "performance", "metrics"},
	"marketing": {"campaign", "promotion", "advertising", "branding", "engagement", "conversion"},
	"project":   {"task", "milestone", "deadline", "deliverable", "timeline", "resource", "scope"},
	"data":      {"analysis", "statistics", "metrics", "insights", "trends", "patterns", "report"},
	"meeting":   {"discussion", "agenda", "notes", "minutes", "decision"},
}

// domainOrder fixes the expansion order so repeated analyses of one query
// produce identical term lists.
var domainOrder = []string{
	"financial", "customer", "technical", "business",
	"marketing", "project", "data", "meeting",
}

// synonyms maps individual query terms to close substitutes.
var synonyms = map[string][]string{
	"error":   {"bug", "issue", "problem", "failure", "exception"},
	"improve": {"enhance", "optimize", "upgrade", "refine"},
	"urgent":  {"critical", "important", "priority", "immediate"},
	"update":  {"change", "modify", "revise", "edit"},
	"plan":    {"strategy", "roadmap", "schedule", "timeline"},
	"report":  {"summary", "overview", "analysis"},
	"find":    {"locate", "search"},
}

// recencyKeywords mark a query as recency-sensitive even without an explicit
// date phrase.
var recencyKeywords = map[string]bool{
	"recent":   true,
	"recently": true,
	"latest":   true,
	"newest":   true,
	"updated":  true,
	"modified": true,
}

// categoryHints maps query terms to document categories.
var categoryHints = map[string]string{
	"document":     "document",
	"documents":    "document",
	"doc":          "document",
	"docs":         "document",
	"pdf":          "document",
	"pdfs":         "document",
	"spreadsheet":  "spreadsheet",
	"spreadsheets": "spreadsheet",
	"excel":        "spreadsheet",
	"csv":          "spreadsheet",
	"sheet":        "spreadsheet",
	"sheets":       "spreadsheet",
	"code":         "code",
	"script":       "code",
	"scripts":      "code",
	"program":      "code",
	"source":       "code",
	"json":         "data",
	"yaml":         "data",
}
