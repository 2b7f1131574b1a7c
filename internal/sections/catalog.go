// Package sections holds the fixed catalog of summary sections. Catalog
// order is the order sections appear in a compiled summary.
package sections

import "docsum/internal/domain"

const (
	BasicInfo    = "basic_info"
	Abstract     = "abstract"
	Methods      = "methods"
	Results      = "results"
	Equations    = "equations"
	Technical    = "technical"
	RelatedWork  = "related_work"
	Applications = "applications"
	Limitations  = "limitations"
)

var catalog = []domain.Section{
	{
		Key:         BasicInfo,
		DisplayName: "Basic Paper Information",
		Instructions: `Extract the bibliographic facts of the document and present them as a markdown table with the columns "Field" and "Value".
Include, when the excerpts state them: title, authors, affiliations, venue or journal, publication date, DOI or identifier, and keywords.
Leave a field out rather than guessing. Do not add commentary before or after the table.`,
	},
	{
		Key:         Abstract,
		DisplayName: "Abstract Summary",
		Instructions: `Summarize the abstract of the document in one short paragraph of plain prose.
Then list, as bullet points, the problem being addressed, the proposed approach, and the headline finding.
Keep every statement grounded in the excerpts.`,
	},
	{
		Key:         Methods,
		DisplayName: "Methodology Summary",
		Instructions: `Describe how the work was carried out.
Use bullet points for: study design or overall approach, data sources and sample, tools or models used, and the evaluation procedure.
Name concrete datasets, parameters and settings when they are given. Skip a bullet when the excerpts are silent on it.`,
	},
	{
		Key:         Results,
		DisplayName: "Key Results",
		Instructions: `Report the main findings as a numbered list, most important first.
Quote figures exactly as written, with units and the comparison they refer to.
When results are reported in a table, reproduce the relevant rows as a markdown table.`,
	},
	{
		Key:         Equations,
		DisplayName: "Key Equations",
		Instructions: `List the central equations or formal definitions that appear in the excerpts.
Write each one in LaTeX between $$ delimiters, followed by one line explaining what it computes and what its symbols mean.
If the document contains no equations, reply with a single sentence saying so.`,
	},
	{
		Key:         Technical,
		DisplayName: "Technical Details",
		Instructions: `Summarize implementation details a practitioner would need to reproduce the work.
Cover architecture or system components, hyperparameters and configuration, hardware or runtime environment, and software or code availability.
Present the details as a markdown table with the columns "Aspect" and "Detail".`,
	},
	{
		Key:         RelatedWork,
		DisplayName: "Related Work",
		Instructions: `Summarize how the document positions itself against prior work.
Group cited work by theme in bullet points and state for each group how this document differs or builds on it.
Mention authors or system names only when they appear in the excerpts.`,
	},
	{
		Key:         Applications,
		DisplayName: "Practical Applications",
		Instructions: `Describe where the findings can be applied in practice.
Give bullet points naming the domain or use case and the benefit the document claims for it.
Separate applications the authors demonstrate from those they only suggest.`,
	},
	{
		Key:         Limitations,
		DisplayName: "Limitations & Future Work",
		Instructions: `List the limitations acknowledged in the document as bullet points, then the future work the authors propose as a second list.
Keep the two lists under the headings "Limitations" and "Future work".
Do not invent limitations the excerpts do not mention.`,
	},
}

// Catalog returns the sections in compile order. The slice is a copy.
func Catalog() []domain.Section {
	out := make([]domain.Section, len(catalog))
	copy(out, catalog)
	return out
}

// Lookup finds a section by key.
func Lookup(key string) (domain.Section, bool) {
	for _, s := range catalog {
		if s.Key == key {
			return s, true
		}
	}
	return domain.Section{}, false
}
