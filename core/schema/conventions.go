package schema

// Well-known control ids the conventional rules key on
const (
	HeightControlID     = "heightMm"
	FrameControlID      = "frame"
	HingesControlID     = "hinges"
	HingeTypeControlID  = "hingeType"
	HingeCountControlID = "hingeCount"
	OpeningControlID    = "opening"
)

// EffectiveConstraints returns the declared constraints, or the
// conventional timber and hinge height limits when none are declared.
func (s *Schema) EffectiveConstraints() []Constraint {
	if s.Constraints != nil {
		return s.Constraints
	}
	return []Constraint{
		{
			ControlID:       FrameControlID,
			OptionIDs:       []string{"wood"},
			SourceControlID: HeightControlID,
			Above:           2300,
			Message:         "Timber not available above 2300 mm",
		},
		{
			ControlID:       HingesControlID,
			OptionIDs:       []string{"3", "4"},
			SourceControlID: HeightControlID,
			Above:           2300,
			Message:         "3 and 4 hinges not available above 2300 mm",
		},
		{
			ControlID:       HingesControlID,
			OptionIDs:       []string{"3"},
			SourceControlID: HeightControlID,
			Above:           2100,
			Message:         "3 hinges not available above 2100 mm",
		},
	}
}

// EffectiveDerivations returns the declared derivations in order, or the
// conventional list compiled from well-known control ids and legacy fields.
// A budget schema drops the inside-opening surcharge and hinges-by-height,
// and prices hinge unit prices by the buyer's hinge count.
func (s *Schema) EffectiveDerivations() []Derivation {
	if s.Derivations != nil {
		return s.Derivations
	}

	var out []Derivation
	if hs := s.HeightSurcharges; hs != nil {
		var tiers []SurchargeTier
		if hs.Over2100 > 0 {
			tiers = append(tiers, SurchargeTier{Above: 2100, AmountCents: hs.Over2100})
		}
		if hs.Over2300 > 0 {
			tiers = append(tiers, SurchargeTier{Above: 2300, AmountCents: hs.Over2300})
		}
		if len(tiers) > 0 {
			out = append(out, &ThresholdSurcharge{SourceControlID: HeightControlID, Tiers: tiers})
		}
	}
	if os := s.OpeningInsideSurcharge; os != nil && !s.Budget {
		out = append(out, &DependentSurcharge{
			ControlID:          OpeningControlID,
			OptionIDs:          []string{"leftInside", "rightInside"},
			DependsOnControlID: FrameControlID,
			AmountsCents:       map[string]int64{"wood": os.Wood, "aluminium": os.Aluminium},
			DefaultKey:         "wood",
		})
	}
	if s.Has(HingesControlID) && !s.Budget {
		out = append(out, &OptionByThreshold{
			ControlID:       HingesControlID,
			SourceControlID: HeightControlID,
			Tiers: []OptionTier{
				{UpTo: 2100, OptionID: "3"},
				{UpTo: 2300, OptionID: "4"},
			},
			Otherwise: "5",
		})
	}
	if hup := s.HingeUnitPrices; hup != nil {
		prices := map[string]int64{"A": hup.A, "B": hup.B}
		switch {
		case !s.Budget:
			out = append(out, &UnitPriceByCount{
				EntryControlID:  HingesControlID,
				SourceControlID: HeightControlID,
				Tiers: []CountTier{
					{UpTo: 2100, Count: 3, UnitKey: "A"},
					{UpTo: 2300, Count: 4, UnitKey: "B"},
				},
				Otherwise:       &CountTier{Count: 5, UnitKey: "B"},
				UnitPricesCents: prices,
			})
		case s.Has(HingesControlID):
			out = append(out, &UnitPriceByCount{
				EntryControlID:  HingesControlID,
				CountControlID:  HingesControlID,
				UnitKey:         "A",
				UnitPricesCents: prices,
			})
		}
	}
	if s.Has(HingeTypeControlID) && s.Has(HingeCountControlID) {
		out = append(out, &UnitTimesCount{
			TypeControlID:  HingeTypeControlID,
			CountControlID: HingeCountControlID,
			EntryControlID: HingesControlID,
			DefaultCount:   "3",
		})
	}
	return out
}
