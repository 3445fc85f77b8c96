package probe

import (
	"fmt"

	"github.com/okian/poirisk/internal/domain/interaction"
	"github.com/okian/poirisk/internal/domain/model"
)

// planChecks walks a controller through every weekday and category of each
// view, the way a user would flip the selectors, and records the selection
// after each category change. Every weekday also gets one selection that
// matches no category.
func planChecks(opts model.DashboardOptions, only []string) ([]Check, error) {
	categories := opts.Categories
	if len(only) > 0 {
		categories = only
	}
	if len(opts.Weekdays) == 0 || len(categories) == 0 {
		return nil, fmt.Errorf("%w: %d weekdays, %d categories", ErrNoChecks, len(opts.Weekdays), len(categories))
	}

	initial, ok := opts.Defaults[string(interaction.ViewHistogram)]
	if !ok {
		initial = interaction.DefaultSelection()
	}
	ctrl := interaction.NewController(initial)

	views := interaction.Views()
	checks := make([]Check, 0, len(views)*(1+len(opts.Weekdays)*(len(categories)+1)))

	for _, v := range views {
		sel, err := ctrl.Selection(v)
		if err != nil {
			return nil, err
		}
		if def, ok := opts.Defaults[string(v)]; ok && def != sel {
			return nil, fmt.Errorf("%w: default selection of %s is %+v, want %+v", ErrBadResponse, v, def, sel)
		}
		checks = append(checks, Check{View: v, Selection: sel})

		for _, w := range opts.Weekdays {
			if _, _, err := ctrl.Apply(interaction.Command{View: v, Selector: interaction.SelectWeekday, Value: w.Value}); err != nil {
				return nil, fmt.Errorf("weekday %q: %w", w.Value, err)
			}

			for _, c := range categories {
				_, sel, err := ctrl.Apply(interaction.Command{View: v, Selector: interaction.SelectCategory, Value: c})
				if err != nil {
					return nil, err
				}
				checks = append(checks, Check{View: v, Selection: sel})
			}

			_, sel, err := ctrl.Apply(interaction.Command{View: v, Selector: interaction.SelectCategory, Value: noMatchCategory})
			if err != nil {
				return nil, err
			}
			checks = append(checks, Check{View: v, Selection: sel, ExpectEmpty: true})
		}
	}

	return checks, nil
}
