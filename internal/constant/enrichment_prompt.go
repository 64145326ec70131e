package constant

// PromptAnalyzeItem asks the model for structured analysis of a reference
// asset. The response must be bare JSON matching entity.ItemAnalysis.
const PromptAnalyzeItem = `You are a design-system analyst. Analyze the reference asset described below and respond with ONLY a JSON object, no markdown fences, with this shape:
{"palette": ["#hex", ...], "typography": "short description", "mood": ["keyword", ...], "transferNotes": "2-3 sentences on how to transfer this reference's qualities onto a UI component"}

Title: %s
Notes: %s
Tags: %s`

// PromptGenerateBriefing asks the model for the long-form briefing used by
// the sandbox detail panel and the briefing embedding space.
const PromptGenerateBriefing = `You are a design-system writer. Write a briefing (3-5 paragraphs, plain text) for the reference asset below. Cover its visual language, how it maps onto the scoped component, and concrete style dial suggestions. Do not use headings or bullet lists.

Title: %s
Notes: %s
Tags: %s
Analysis transfer notes: %s`
