package reddit

// problemKeywords are the search phrases used to surface posts that
// signal an unmet need or pain point. Timeframe searches run one query
// per keyword and merge the results.
var problemKeywords = []string{
	"need tool for", "need software for", "looking for tool", "looking for app",
	"recommend tool", "recommend software", "any tools for", "any apps for",
	"frustrated with", "tired of manually", "hate doing", "waste time",
	"wasting time", "takes forever to", "pain point", "pain in the",
	"annoying process", "automate this", "efficiency", "productivity",
	"automation", "workflow", "business needs", "company requires",
	"enterprise solution", "scale our", "manage multiple", "track all",
	"monitor our", "integrate with", "data entry", "manual process",
	"repetitive tasks", "time consuming", "complex workflow",
	"communication gap", "coordination", "collaboration", "solution for",
	"struggle with", "difficult to", "can't figure out", "need to improve",
	"optimize", "streamline", "simplify", "how to solve", "help managing",
	"better way to", "alternative to",
}
