package assistant

// SystemPrompt is shared by every stage.
const SystemPrompt = `You are a meal-prep assistant that reads recipes and plans grocery shopping.

Respond with ONLY valid JSON matching the schema. No explanations.

Rules:
1. Quantities are plain numbers (use 0.5, not "1/2"); never include units in numbers
2. Prices are numbers in US dollars with no currency symbol
3. Use standard grocery names for ingredients, as a supermarket website would list them
4. Keep ingredient order as given`

const extractPrompt = `Analyze this recipe and list its ingredients in grocery shopping format.

For each ingredient provide:
- name: standard grocery term (e.g. "garlic cloves" instead of "whole fresh garlic bulb", "sour cream" instead of "dairy sour cream")
- quantity: numerical amount
- unit: a common retail unit. Produce: "whole", "bunch", "head", "lb". Dairy and liquids: "oz", "fl oz", "gallon", "cup". Packaged goods: "oz", "lb", "count". Use "" for plain counts.
- category: one of "produce", "dairy", "meat", "seafood", "pantry", "spices", "frozen", "bakery"
- notes: specifics that do not fit elsewhere (preparation, variety)

Also report the number of servings the recipe makes (0 if not stated), the meal type, the portion size and the calories per serving if known.

Recipe text:
`

const scalePrompt = `Scale this recipe from %d servings to %d servings (factor %s).

Return every ingredient below, in the same order and with exactly the same name, with its quantity recomputed for the new serving count. Keep each unit unchanged. Round to practical kitchen amounts.

Ingredients:
%s`

const shoppingPrompt = `Build a shopping list optimized for bulk buying from these scaled ingredients for %d servings.

Rules:
- Combine ingredients that are bought as the same product; never list more items than there are ingredients
- Round up to common store package sizes (e.g. 1 dozen eggs, 5 lb bag of flour)
- For each item list the exact ingredient names it covers, copied from the list below
- Give an estimated price per item and a short storage tip for bulk ingredients
- Give overall storage recommendations and the estimated total cost

Consider ingredient shelf life and common store quantities.

Scaled ingredients:
%s`
