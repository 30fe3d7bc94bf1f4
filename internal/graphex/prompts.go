package graphex

// entityPrompt asks the model for the entities mentioned in a transcript.
const entityPrompt = `You extract entities from a conversation transcript. An entity is a person, place, organization, object, or concept that the conversation is about.

Return a JSON object of the form {"entities": [{"label": string, "type": string}]}. "label" is the entity name as mentioned, "type" is a short lowercase category like "person", "place", "food". Return {"entities": []} when nothing qualifies. Return only the JSON object.`

// relationPrompt asks the model for relations between previously extracted
// entities. The entity list and transcript are appended by the caller.
const relationPrompt = `You extract relationships between entities mentioned in a conversation transcript. Only use entities from the provided list.

Return a JSON object of the form {"relations": [{"source": string, "predicate": string, "target": string, "weight": number}]}. "source" and "target" are entity labels from the list, "predicate" is a short lowercase verb phrase like "likes" or "lives_in", "weight" is your confidence in the relationship between 0 and 1. Return {"relations": []} when no relationship is stated. Return only the JSON object.`
