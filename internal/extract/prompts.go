package extract

// defaultPrompt is the built-in fact-extraction instruction. Callers can
// replace it per request via [WithPrompt] or a system-message override.
const defaultPrompt = `You are a personal information organizer. You extract durable facts about the user, the assistant, and their preferences from a conversation transcript.

Extract only information worth remembering long term: preferences, personal details, plans, relationships, opinions, and constraints. Ignore greetings, acknowledgements, and transient chit-chat.

Return a JSON object of the form {"facts": ["fact one", "fact two"]}. Each fact is a short self-contained sentence. Return {"facts": []} when the transcript contains nothing worth remembering. Return only the JSON object.`

// repairPrompt asks the model to re-emit its previous malformed output as
// valid JSON. The raw output is appended by the caller.
const repairPrompt = `Your previous reply was not valid JSON. Re-emit the same content as a valid JSON object of the form {"facts": [...]} with no surrounding text. Previous reply:`
