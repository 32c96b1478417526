package ai

import (
	"fmt"
	"strings"
)

const systemPrompt = "You are a legal document analyzer. Extract and categorize clauses from contracts."

// buildExtractionPrompt renders the contract text with page markers so the
// model can attribute clauses to 1-based page numbers.
func buildExtractionPrompt(input Input) string {
	var text string
	if len(input.Pages) > 0 {
		var b strings.Builder
		for i, page := range input.Pages {
			fmt.Fprintf(&b, "\n--- Page %d ---\n%s", i+1, page)
		}
		text = b.String()
	} else {
		text = input.Text
	}

	return fmt.Sprintf(`Analyze the following legal contract and extract all key clauses.
For each clause, provide:
1. clause_type: The category of the clause (e.g., "Payment Terms", "Confidentiality", "Termination", "Liability", "Governing Law", etc.)
2. content: The actual text of the clause
3. page_number: The 1-based page number where the clause appears, or null if unknown

Contract text:
%s

Return only valid JSON in this exact format:
[
  {
    "clause_type": "string",
    "content": "string",
    "page_number": number or null
  }
]
`, text)
}
