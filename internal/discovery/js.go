package discovery

import (
	"encoding/json"
	"fmt"
)

func jsArg(v any) string {
	raw, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(raw)
}

// rawField is the per-element record the extraction script emits.
type rawField struct {
	Tag        string            `json:"tag"`
	TagName    string            `json:"tagName"`
	Type       string            `json:"type"`
	Role       string            `json:"role"`
	Attrs      map[string]string `json:"attrs"`
	Disabled   bool              `json:"disabled"`
	Hidden     bool              `json:"hidden"`
	FocusProxy bool              `json:"focusProxy"`
	Required   bool              `json:"required"`
	NestedLbl  string            `json:"nestedLabel"`
}

// rawContainer is the per-container record the extraction script emits.
type rawContainer struct {
	Tag         string     `json:"tag"`
	FPSource    string     `json:"fpSource"`
	Label       string     `json:"label"`
	LegendStar  bool       `json:"legendStar"`
	ErrorActive bool       `json:"errorActive"`
	Group       string     `json:"group"`
	GroupIdx    int        `json:"groupIdx"`
	Fields      []rawField `json:"fields"`
}

// extractJS walks the platform's container selectors, stamps containers and
// their inputs, and emits raw records for Go-side classification.
//
// Label rules applied in-page: a legend that itself contains an input is not
// the container label; labels wrapping a nested input are recorded on the
// field (for compound splitting) and excluded from the container label.
func extractJS(containerSelectors, exclusionSelectors, errorSelectors []string, groupSelectors map[string]string, targetAttr, tokenPrefix string) string {
	return fmt.Sprintf(`(() => {
	const containerSels = %s;
	const exclusionSels = %s;
	const errorSels = %s;
	const groupSels = %s;
	const ATTR = %s;
	const PREFIX = %s;

	const seen = new Set();
	const containers = [];
	for (const sel of containerSels) {
		for (const el of document.querySelectorAll(sel)) {
			if (seen.has(el)) continue;
			if (exclusionSels.some(x => el.closest(x))) continue;
			seen.add(el);
			containers.push(el);
		}
	}

	const groupIndex = new Map();
	for (const [group, sel] of Object.entries(groupSels)) {
		document.querySelectorAll(sel).forEach((panel, i) => groupIndex.set(panel, {group, idx: i}));
	}

	const visible = el => {
		const r = el.getBoundingClientRect();
		return r.width > 0 && r.height > 0 && getComputedStyle(el).visibility !== 'hidden';
	};
	const isFocusProxy = el =>
		el.getAttribute('aria-hidden') === 'true' || el.tabIndex === -1 && el.type === 'text' && !el.name ||
		(el.style && el.style.opacity === '0');

	const attrKeys = ['id', 'name', 'placeholder', 'aria-label', 'aria-labelledby', 'aria-required',
		'aria-haspopup', 'aria-controls', 'data-automation-id', 'autocomplete'];

	const out = [];
	containers.forEach((container, ci) => {
		const ctok = PREFIX + '-c' + ci;
		container.setAttribute(ATTR, ctok);

		let label = '';
		let legendStar = false;
		const legend = container.querySelector('legend');
		if (legend && !legend.querySelector('input, select, textarea, button')) {
			label = legend.textContent.trim();
			legendStar = /\*\s*$/.test(label);
		}
		if (!label) {
			for (const lab of container.querySelectorAll('label')) {
				if (lab.querySelector('input, select, textarea')) continue;
				label = lab.textContent.trim();
				break;
			}
		}
		if (!label) {
			const aria = container.getAttribute('aria-label');
			if (aria) label = aria.trim();
		}

		const errorActive = errorSels.some(sel => {
			const ind = container.querySelector(sel);
			return ind && visible(ind);
		}) || errorSels.some(sel => container.matches(sel));

		let group = '', groupIdx = -1;
		for (let anc = container; anc; anc = anc.parentElement) {
			if (groupIndex.has(anc)) {
				const g = groupIndex.get(anc);
				group = g.group; groupIdx = g.idx;
				break;
			}
		}

		const fields = [];
		container.querySelectorAll('input, textarea, select, button, [role="combobox"], [role="spinbutton"], [role="listbox"], [contenteditable="true"]').forEach((el, fi) => {
			if (el.disabled) return;
			if (el.type === 'hidden') return;
			if (!visible(el) && el.type !== 'file') return;
			if (isFocusProxy(el)) return;
			const ftok = ctok + '-f' + fi;
			el.setAttribute(ATTR, ftok);
			const attrs = {};
			for (const k of attrKeys) {
				const v = el.getAttribute(k);
				if (v) attrs[k] = v;
			}
			let nestedLabel = '';
			const wrap = el.closest('label');
			if (wrap && wrap !== container) nestedLabel = wrap.textContent.trim();
			if (!nestedLabel) nestedLabel = el.getAttribute('aria-label') || '';
			fields.push({
				tag: ftok,
				tagName: el.tagName.toLowerCase(),
				type: (el.getAttribute('type') || '').toLowerCase(),
				role: (el.getAttribute('role') || '').toLowerCase(),
				attrs: attrs,
				disabled: !!el.disabled,
				hidden: !visible(el),
				focusProxy: false,
				required: el.required === true || el.getAttribute('aria-required') === 'true',
				nestedLabel: nestedLabel,
			});
		});
		if (fields.length === 0) return;

		const idParts = [container.tagName.toLowerCase()];
		for (const k of ['id', 'data-automation-id', 'class']) {
			const v = container.getAttribute(k);
			if (v) idParts.push(k + '=' + v);
		}
		out.push({
			tag: ctok,
			fpSource: idParts.join('|') + '|' + label,
			label: label,
			legendStar: legendStar,
			errorActive: errorActive,
			group: group,
			groupIdx: groupIdx,
			fields: fields,
		});
	});
	return out;
})()`, jsArg(containerSelectors), jsArg(exclusionSelectors), jsArg(errorSelectors),
		jsArg(groupSelectors), jsArg(targetAttr), jsArg(tokenPrefix))
}
