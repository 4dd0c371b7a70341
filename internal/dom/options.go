package dom

import (
	"context"
	"time"

	"github.com/kalpthakkar/ApplyPilot-sub000/api/schemas"
)

// GetOptions enumerates a choice field's available options without changing
// its state. Used to enrich escalation prompts with the concrete choices a
// page actually offers.
func (d *Driver) GetOptions(ctx context.Context, kind schemas.FieldKind, loc schemas.Locator, timeout time.Duration) ([]schemas.OptionInfo, error) {
	switch kind {
	case schemas.FieldRadio:
		res, err := d.RadioSelect(ctx, loc, nil, RadioOptions{Mode: ModeInspect, Timeout: timeout})
		if err != nil {
			return nil, err
		}
		return res.Options, nil
	case schemas.FieldCheckbox:
		res, err := d.CheckboxSelect(ctx, loc, nil, CheckboxOptions{Mode: ModeInspect, Timeout: timeout})
		if err != nil {
			return nil, err
		}
		return res.Options, nil
	case schemas.FieldDropdown, schemas.FieldMultiselect:
		res, err := d.DropdownSelect(ctx, loc, nil, DropdownOptions{Mode: ModeInspect, Timeout: timeout})
		if err != nil {
			return nil, err
		}
		return res.Options, nil
	case schemas.FieldSelect:
		res, err := d.SelectField(ctx, loc, nil, SelectFieldOptions{Mode: ModeInspect, Timeout: timeout})
		if err != nil {
			return nil, err
		}
		return res.Options, nil
	default:
		return nil, nil
	}
}
