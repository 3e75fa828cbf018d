package pipeline

// extractionInstructions is sent verbatim ahead of the statement text.
// Categories are free text; the examples only steer the model's vocabulary.
const extractionInstructions = `You are an expert in extracting transaction information from bank
statements. Given the text from a bank statement, extract the following
information for each transaction:
- Date
- Description (the name of the establishment)
- Amount
- Type (credit or debit)
- Category in Portuguese (e.g., Alimentação, Transporte, Lazer, Salário,
  etc.)

**Important**: The descriptions must be kept in Portuguese and should be
short and direct.

Return the information in a JSON format, as a list of objects.
For example:
[
    {
        "date": "2023-10-26",
        "description": "Supermercado Pague Menos",
        "amount": 345.60,
        "type": "debit",
        "category": "Alimentação"
    },
    {
        "date": "2023-10-27",
        "description": "Posto Shell Av. Central",
        "amount": 150.00,
        "type": "debit",
        "category": "Transporte"
    },
    {
        "date": "2023-10-28",
        "description": "Depósito de Salário",
        "amount": 5000.00,
        "type": "credit",
        "category": "Salário"
    }
]

Bank statement text:
`

// buildExtractionPrompt appends the statement text to the fixed instructions.
func buildExtractionPrompt(text string) string {
	return extractionInstructions + text
}
