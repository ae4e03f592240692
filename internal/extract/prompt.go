package extract

import (
	"google.golang.org/genai"

	"invoicesnap/pkg/models"
)

// Prompt is the extraction instruction sent with every image.
const Prompt = `Identify and extract data from this Taiwanese Uniform Invoice (統一發票).
It could be handwritten or printed. It is either a 2-part (二聯式) or 3-part (三聯式) invoice.

Please extract:
1. Invoice Number (發票號碼) - usually 2 letters followed by 8 digits.
2. Date (日期) - Convert ROC year (e.g. 113) to AD year (e.g. 2024). Format YYYY-MM-DD.
3. Buyer Name (買受人/抬頭) - The company name or person name.
4. Buyer Tax ID (統一編號) - 8 digit number. If empty, return empty string.
5. Items (品名/摘要) - List of items with quantity, unit price, and amount.
6. Amounts: Subtotal (銷售額), Tax (營業稅), Total (總計).
7. Invoice Type: Determine if it is '二聯式' (Duplicate) or '三聯式' (Triplicate). Usually 3-part has a Tax ID field filled.

Return strict JSON.`

// jsonShape describes the expected answer for models without schema support.
const jsonShape = `Answer with one JSON object and nothing else, using exactly these keys:
{"invoiceNumber": string, "date": "YYYY-MM-DD", "buyerName": string, "buyerTaxId": string,
 "type": "二聯式" | "三聯式" | "未知",
 "items": [{"description": string, "quantity": number, "unitPrice": number, "amount": number}],
 "subtotal": number, "tax": number, "total": number}
Use an empty string or omit a key when the value cannot be read.`

// responseSchema constrains the Gemini answer to the record shape.
func responseSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"invoiceNumber": {Type: genai.TypeString},
			"date":          {Type: genai.TypeString, Description: "YYYY-MM-DD format"},
			"buyerName":     {Type: genai.TypeString},
			"buyerTaxId":    {Type: genai.TypeString},
			"type": {
				Type: genai.TypeString,
				Enum: []string{string(models.Duplicate), string(models.Triplicate), string(models.Unknown)},
			},
			"items": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"description": {Type: genai.TypeString},
						"quantity":    {Type: genai.TypeNumber},
						"unitPrice":   {Type: genai.TypeNumber},
						"amount":      {Type: genai.TypeNumber},
					},
				},
			},
			"subtotal": {Type: genai.TypeNumber},
			"tax":      {Type: genai.TypeNumber},
			"total":    {Type: genai.TypeNumber},
		},
	}
}
