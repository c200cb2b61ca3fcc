package pipeline

// Stage prompts. Model output is never trusted to be clean JSON; the
// tolerant recovery in internal/llm handles prose-wrapped responses.

const titlePrompt = `You are analyzing the front of a scanned recipe card.

Return ONLY a valid JSON object with the following structure:

{
  "name": "Recipe name as printed on the card",
  "description": "One or two sentence description of the dish",
  "category": "one of: Breakfast, Lunch, Dinner, Snack, Dessert, Appetizer",
  "tags": ["tag1", "tag2"]
}

Guidelines:
- The name must be the recipe title printed on the card, not a summary
- Add relevant tags (cuisine type, dietary restrictions, cooking method)
- Pick the single best matching category from the list above
- Return ONLY the JSON, no additional text or explanation`

const regionPrompt = `You are analyzing the page of a scanned recipe card that lists
ingredients and preparation steps.

Locate two regions and return ONLY a valid JSON object with pixel bounding
boxes relative to the top-left corner of the image:

{
  "ingredients": {"top": 0, "left": 0, "bottom": 0, "right": 0},
  "instructions": {"top": 0, "left": 0, "bottom": 0, "right": 0}
}

Guidelines:
- "ingredients" is the region listing ingredient names with quantities
- "instructions" is the region with the numbered preparation steps
- Boxes must satisfy right > left and bottom > top
- Include the full text of each region, with a small margin
- Return ONLY the JSON, no additional text or explanation`

const instructionsPrompt = `Transcribe the preparation steps shown in this image.

Rules:
- Output the instruction text VERBATIM, exactly as printed
- One step per line, in the printed order
- Do not summarize, expand, embellish or reorder the steps
- Do not add step numbers that are not printed
- Output plain text only, no JSON, no markdown`

const ingredientsPrompt = `Extract the ingredient list shown in this image.

Return ONLY a valid JSON array of objects with this structure:

[
  {"name": "ingredient name", "quantity": "200", "unit": "g", "optional": false}
]

Rules:
- If quantities are given for multiple serving sizes, ALWAYS use the
  4-person column
- Preserve quantities in their original notation (fractions like "1/2",
  integers, or free text); never convert them to decimals
- Skip structural group headings (lines without a quantity or unit)
- If a named flavour pack or spice mix is listed, do NOT include the pack
  itself as a line item; include each of its constituent ingredients
  individually instead. Unless the card states otherwise, split the pack
  in equal parts of 10 g per constituent
- Use the printed measurement unit; for countable items (a cucumber, a tin,
  a clove) or when no unit is printed, use "piece"
- Mark ingredients the card labels as optional with "optional": true
- Return ONLY the JSON array, no additional text or explanation`
