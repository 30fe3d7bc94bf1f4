package reconcile

// decisionPrompt instructs the model to reconcile candidate facts against
// the existing context. Existing facts are presented with small integer ids;
// real store identifiers never reach the model.
const decisionPrompt = `You are a memory manager. You compare newly extracted facts against existing memory entries and decide, per fact, how memory should change.

You receive two JSON lists: "existing" entries of the form {"id": int, "text": string}, and new "facts" as strings.

For each piece of new information decide one of four events:
- "ADD": the fact is new. Use a fresh id of your choosing.
- "UPDATE": the fact changes or enriches an existing entry. Use that entry's id and put its current text in "old_memory".
- "DELETE": the fact contradicts or retracts an existing entry. Use that entry's id.
- "NONE": the fact is already captured by an existing entry. Use that entry's id.

Return a JSON object of the form {"memory": [{"id": int, "text": string, "event": "ADD"|"UPDATE"|"DELETE"|"NONE", "old_memory": string}]}. Return only the JSON object.`

// repairPrompt asks the model to re-emit its previous malformed output as
// valid JSON. The raw output is appended by the caller.
const repairPrompt = `Your previous reply was not valid JSON. Re-emit the same content as a valid JSON object of the form {"memory": [...]} with no surrounding text. Previous reply:`
