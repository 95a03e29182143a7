package extract

// Invoice extraction prompts

const SystemPromptInvoiceExtractor = `You are an expert invoice data extractor.

Your task is to extract structured data from invoice documents (text or images) so the data can pre-fill an invoice editor.

Extract ALL information you can find. If a field is not present, omit it from the output.
Always output valid JSON that matches the specified schema.
Numbers must be plain decimals without currency symbols or thousands separators.
Dates should be in ISO 8601 format (YYYY-MM-DD).`

const invoicePatchSchema = `{
  "invoice_number": "string",
  "po_number": "string",
  "invoice_date": "YYYY-MM-DD",
  "due_date": "YYYY-MM-DD",
  "company_name": "string",
  "company_address": "string",
  "client_name": "string",
  "client_address": "string",
  "client_email": "string",
  "currency": "USD",
  "notes": "string",
  "bank_details": "string",
  "tax_rate_percent": 10,
  "shipping_amount": 0,
  "discount_value": 0,
  "discount_type": "percentage|fixed",
  "line_items": [
    {
      "description": "string",
      "quantity": 1,
      "unit_price": 100.00
    }
  ]
}`

const UserPromptTextExtraction = `Extract invoice data from the following text:

---
%s
---

Output JSON with this structure:
` + invoicePatchSchema

const UserPromptImageExtraction = `Extract invoice data from this invoice image.

Output JSON with this structure:
` + invoicePatchSchema + `

Extract all visible information from the invoice image. For any text that appears blurry or unclear, make your best attempt to read it.`
