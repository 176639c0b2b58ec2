package pipeline

// DefaultContent returns the six-stage content pipeline:
// research → outline → write → edit → factcheck → seo.
func DefaultContent() *Pipeline {
	p, err := New("content", DefaultContentStages()...)
	if err != nil {
		panic("pipeline: default content pipeline is invalid: " + err.Error())
	}
	p.Description = "Research, outline, write, edit, fact-check and optimize a piece of content."
	return p
}

// The outline and write stages share one writer persona.
const (
	writerRole      = "Expert Content Writer"
	writerGoal      = "Create engaging, well-structured content that captivates readers"
	writerBackstory = "You are an award-winning content writer with a background in journalism and creative " +
		"writing who has written for top publications. Your writing is clear, engaging and accessible. You excel " +
		"at storytelling with compelling hooks and keep reader interest throughout. You always write in active " +
		"voice and use concrete examples."
)

// DefaultContentStages returns fresh copies of the default content stages.
func DefaultContentStages() []*Stage {
	return []*Stage{
		{
			Name:     "research",
			Role:     "Senior Research Analyst",
			Goal:     "Discover accurate, current information and credible sources on any topic",
			TaskType: "research",
			Backstory: "You are an expert research analyst with a PhD in Information Science and 15 years of " +
				"investigative research. You find authoritative sources, verify information and synthesize " +
				"complex data into clear insights. You never cite unverified information and always provide source URLs.",
			Search: `{{ .Subject }} latest developments statistics`,
			Prompt: `Conduct comprehensive research on the topic: "{{ .Subject }}"

Your research should include:
1. Current trends and latest developments (last 6-12 months)
2. Key statistics and data points with sources
3. Expert opinions and notable quotes
4. Real-world examples and case studies
5. Common questions or misconceptions

Focus on authoritative sources: academic papers, reputable news outlets, expert
blogs, official documentation and government or institutional reports.
{{ if .Search.OK }}
Web search results:
{{ .Search.Text }}
{{ else }}
Web search was unavailable ({{ .Search.Reason }}). Rely on what you know and mark claims that need verification.
{{ end }}`,
			ExpectedOutput: `A comprehensive research report in markdown containing an executive summary,
5-7 key findings with sources, 3-5 statistics with source and date, 2-3 expert quotes,
2-3 examples or case studies, and a list of all sources with URLs.`,
		},
		{
			Name:      "outline",
			Role:      writerRole,
			Goal:      writerGoal,
			TaskType:  "outline",
			Backstory: writerBackstory,
			After:     []string{"research"},
			Prompt: `Based on the research findings, create a detailed content outline.

Content Type: {{ .ContentType }}
Topic: {{ .Subject }}

Your outline should:
1. Start with a compelling hook
2. Have a clear logical flow
3. Include main sections and subsections
4. Note where to include statistics, quotes, or examples
5. End with a strong conclusion and call-to-action`,
			ExpectedOutput: `A detailed content outline in markdown: title, hook, sections with subsections
and notes on supporting material, conclusion and call-to-action.`,
		},
		{
			Name:      "write",
			Role:      writerRole,
			Goal:      writerGoal,
			TaskType:  "write",
			Backstory: writerBackstory,
			After:     []string{"research", "outline"},
			Prompt: `Write a complete, engaging {{ .ContentType }} about "{{ .Subject }}" based on the outline and research.

Length: Aim for 1500-2000 words
Format: Markdown with proper headers, lists, and emphasis`,
			ExpectedOutput: `A complete, polished article in markdown format.`,
		},
		{
			Name:     "edit",
			Role:     "Senior Content Editor",
			Goal:     "Refine content to perfection through editing and structural improvements",
			TaskType: "edit",
			Backstory: "You are a meticulous editor with 20 years of publishing experience. You improve structure, " +
				"enhance readability, eliminate redundancy and catch grammatical errors and logical inconsistencies.",
			After:          []string{"write"},
			Prompt:         `Edit the {{ .ContentType }} to perfection. Focus on structure, clarity, engagement and technical correctness.`,
			ExpectedOutput: `The edited article in markdown, followed by brief editorial notes.`,
		},
		{
			Name:     "factcheck",
			Role:     "Professional Fact Checker",
			Goal:     "Verify all claims, statistics, and assertions in content",
			TaskType: "factcheck",
			Backstory: "You are a professional fact-checker from major news organizations. You verify every claim, " +
				"cross-reference sources and flag anything questionable, providing corrections with citations.",
			After:  []string{"edit"},
			Search: `{{ .Subject }} facts statistics verification`,
			Prompt: `Thoroughly fact-check all claims in the content about "{{ .Subject }}".
{{ if .Search.OK }}
Reference search results:
{{ .Search.Text }}
{{ else }}
Web search was unavailable ({{ .Search.Reason }}). Flag claims you cannot verify instead of confirming them.
{{ end }}`,
			ExpectedOutput: `A fact-check report listing each claim, its verdict, and corrections with citations.`,
		},
		{
			Name:     "seo",
			Role:     "SEO Optimization Expert",
			Goal:     "Optimize content for search engines while maintaining quality and readability",
			TaskType: "seo",
			Backstory: "You are an SEO expert with deep knowledge of search algorithms, keyword research and " +
				"content optimization. You balance SEO best practices with user experience.",
			After: []string{"edit", "factcheck"},
			Prompt: `Optimize the content for search engines while maintaining quality.
Apply the fact-check corrections, then optimize headlines, keyword placement and structure.
Topic: {{ .Subject }}`,
			ExpectedOutput: `The final optimized content in markdown, ready to publish.`,
		},
	}
}
