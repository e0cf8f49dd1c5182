package orchestrator

// trimHistory trims the message list to maxHistoryMessages, walking the
// cut point forward past any tool-role messages it would otherwise split
// off from their owning assistant message, and backward to include that
// assistant message if the cut landed just past it. A tool group —
// an assistant message with ToolCalls followed by its tool-role results —
// is never split.
func (o *Orchestrator) trimHistory() {
	limit := o.maxHistoryMessages
	if len(o.messages) <= limit {
		return
	}

	cut := len(o.messages) - limit
	for cut < len(o.messages) && o.messages[cut].Role == "tool" {
		cut++
	}
	if cut > 0 && len(o.messages[cut-1].ToolCalls) > 0 {
		cut--
		for cut > 0 && o.messages[cut-1].Role == "tool" {
			cut--
		}
	}

	o.messages = o.messages[cut:]
}
