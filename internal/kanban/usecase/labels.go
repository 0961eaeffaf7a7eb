package usecase

import "ga03-kanban/internal/kanban/domain"

// PlanLabels computes the Gmail label change of moving a card from source to target.
// Labels added by the target are never removed, and the result has no duplicates.
func PlanLabels(source, target *domain.Column) domain.LabelEffect {
	effect := domain.LabelEffect{Add: []string{}, Remove: []string{}}
	if target == nil {
		return effect
	}

	added := make(map[string]bool)
	add := func(id string) {
		if id == "" || added[id] {
			return
		}
		added[id] = true
		effect.Add = append(effect.Add, id)
	}
	add(target.GmailLabelID)
	for _, id := range target.AddLabelsOnMove {
		add(id)
	}

	removed := make(map[string]bool)
	remove := func(id string) {
		if id == "" || added[id] || removed[id] {
			return
		}
		removed[id] = true
		effect.Remove = append(effect.Remove, id)
	}
	for _, id := range target.RemoveLabelsOnMove {
		remove(id)
	}
	if source != nil && source.GmailLabelID != target.GmailLabelID {
		remove(source.GmailLabelID)
	}
	return effect
}

// flagLabel is the label change mirroring a read or starred toggle
func flagLabel(label string, set bool) domain.LabelEffect {
	if set {
		return domain.LabelEffect{Add: []string{label}, Remove: []string{}}
	}
	return domain.LabelEffect{Add: []string{}, Remove: []string{label}}
}
