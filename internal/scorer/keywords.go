package scorer

// Keyword sets are reproduced verbatim from the original claw-router's
// scorer so that classification behavior matches byte-for-byte
// (spec.md §4.4).
var (
	codeKeywords = []string{
		"function", "class", "import", "const", "let", "var", "return",
		"async", "await", "def ", "print(", "console.log", "```",
		"pub fn", "impl ", "struct ", "enum ", "SELECT", "INSERT",
		"UPDATE", "DELETE", "CREATE TABLE",
	}
	reasoningKeywords = []string{
		"prove", "theorem", "derive", "step by step", "chain of thought",
		"formally", "mathematical", "proof", "logically", "contradiction",
		"induction", "hypothesis", "therefore", "axiom", "lemma",
		"corollary", "deduce", "implies",
	}
	technicalKeywords = []string{
		"algorithm", "optimize", "architecture", "distributed",
		"kubernetes", "microservice", "database", "infrastructure",
		"concurrent", "latency", "throughput", "scalable", "middleware",
		"authentication", "authorization", "encryption",
	}
	creativeKeywords = []string{
		"story", "poem", "compose", "brainstorm", "creative", "imagine",
		"write a", "fiction", "narrative", "character", "plot", "metaphor",
	}
	simpleKeywords = []string{
		"what is", "define", "translate", "hello", "yes or no",
		"capital of", "how old", "who is", "when was", "meaning of",
		"true or false",
	}
	imperativeKeywords = []string{
		"build", "create", "implement", "design", "develop", "construct",
		"generate", "deploy", "configure", "set up", "refactor",
		"migrate", "integrate",
	}
	constraintKeywords = []string{
		"under", "at most", "at least", "within", "no more than", "o(",
		"maximum", "minimum", "limit", "budget", "constraint",
	}
	outputFormatKeywords = []string{
		"json", "yaml", "xml", "table", "csv", "markdown", "schema",
		"format as", "structured", "output as",
	}
	referenceKeywords = []string{
		"above", "below", "previous", "following", "the docs", "the api",
		"the code", "earlier", "attached", "mentioned",
	}
	negationKeywords = []string{
		"don't", "do not", "avoid", "never", "without", "except",
		"exclude", "no longer", "must not", "shouldn't",
	}
	domainKeywords = []string{
		"quantum", "fpga", "vlsi", "risc-v", "asic", "photonics",
		"genomics", "proteomics", "topological", "homomorphic",
		"zero-knowledge", "lattice-based",
	}
	agenticKeywords = []string{
		"read file", "read the file", "look at", "check the", "open the",
		"edit", "modify", "update the", "change the", "write to",
		"create file", "execute", "deploy", "install", "npm", "pip",
		"compile", "after that", "and also", "once done", "step 1",
		"step 2", "fix", "debug", "until it works", "keep trying",
		"iterate", "make sure", "verify", "confirm",
	}
)
