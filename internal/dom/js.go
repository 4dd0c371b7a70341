package dom

import (
	"encoding/json"
	"fmt"
	"sync/atomic"
)

// jsArg marshals a Go value into a JS literal safe for snippet interpolation.
func jsArg(v any) string {
	raw, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(raw)
}

var tokenSeq atomic.Int64

// nextToken produces a unique value for the stamping attribute.
func nextToken(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, tokenSeq.Add(1))
}

// resolveJS finds the first element matching the selector (and the optional
// validate predicate, a JS function source) and stamps it with the target
// attribute. Evaluates truthy once an element is stamped.
func resolveJS(selector, validate, token string) string {
	if validate == "" {
		validate = "null"
	}
	return fmt.Sprintf(`(() => {
	const validate = %s;
	for (const el of document.querySelectorAll(%s)) {
		if (validate && !validate(el)) continue;
		el.setAttribute(%s, %s);
		return true;
	}
	return false;
})()`, validate, jsArg(selector), jsArg(targetAttr), jsArg(token))
}

// armMutationJS installs a one-shot document-wide mutation flag.
const armMutationJS = `(() => {
	window.__apMutated = false;
	if (window.__apObserver) window.__apObserver.disconnect();
	window.__apObserver = new MutationObserver(() => {
		window.__apMutated = true;
		window.__apObserver.disconnect();
	});
	window.__apObserver.observe(document.documentElement,
		{subtree: true, childList: true, attributes: true, characterData: true});
	return true;
})()`

const mutatedJS = `window.__apMutated === true`

// clickNthJS clicks the idx-th match of a selector in document order.
func clickNthJS(selector string, idx int) string {
	return fmt.Sprintf(`(() => {
	const el = document.querySelectorAll(%s)[%d];
	if (!el) return false;
	el.scrollIntoView({block: 'center', inline: 'center'});
	for (const type of ['pointerdown', 'mousedown', 'pointerup', 'mouseup', 'click']) {
		el.dispatchEvent(new MouseEvent(type, {bubbles: true, cancelable: true, view: window}));
	}
	return true;
})()`, jsArg(selector), idx)
}

// countJS counts elements matching a selector.
func countJS(selector string) string {
	return fmt.Sprintf(`document.querySelectorAll(%s).length`, jsArg(selector))
}

// visibleCountJS counts visible elements matching a selector.
func visibleCountJS(selector string) string {
	return fmt.Sprintf(`Array.from(document.querySelectorAll(%s)).filter(el => {
	const r = el.getBoundingClientRect();
	return r.width > 0 && r.height > 0 && getComputedStyle(el).visibility !== 'hidden';
}).length`, jsArg(selector))
}

// readValueJS reads the current value of an input-like element.
func readValueJS(selector string) string {
	return fmt.Sprintf(`(() => {
	const el = document.querySelector(%s);
	if (!el) return null;
	if (el.isContentEditable) return el.textContent;
	if ('value' in el) return el.value;
	return el.textContent;
})()`, jsArg(selector))
}

// nativeSetJS re-asserts a value through the platform's native property
// setter, defeating controlled-component overwrites, then dispatches input
// and change so the framework observes the final state.
func nativeSetJS(selector, value string) string {
	return fmt.Sprintf(`(() => {
	const el = document.querySelector(%s);
	if (!el) return false;
	const value = %s;
	if (el.isContentEditable) {
		el.textContent = value;
	} else {
		const proto = el.tagName === 'TEXTAREA'
			? HTMLTextAreaElement.prototype
			: (el.tagName === 'SELECT' ? HTMLSelectElement.prototype : HTMLInputElement.prototype);
		const desc = Object.getOwnPropertyDescriptor(proto, 'value');
		if (desc && desc.set) { desc.set.call(el, value); } else { el.value = value; }
	}
	el.dispatchEvent(new Event('input', {bubbles: true}));
	el.dispatchEvent(new Event('change', {bubbles: true}));
	return true;
})()`, jsArg(selector), jsArg(value))
}

// detectEditorJS probes for rich-editor APIs on the element or its host.
func detectEditorJS(selector string) string {
	return fmt.Sprintf(`(() => {
	const el = document.querySelector(%s);
	if (!el) return '';
	if (el.__quill || (el.closest && el.closest('.ql-container') && window.Quill)) return 'quill';
	if (window.tinymce && el.id && window.tinymce.get(el.id)) return 'tinymce';
	if (el.ckeditorInstance || (window.CKEDITOR && el.id && window.CKEDITOR.instances && window.CKEDITOR.instances[el.id])) return 'ckeditor';
	return '';
})()`, jsArg(selector))
}

// editorSetJS writes through a detected rich-editor adapter.
func editorSetJS(selector, editor, value string) string {
	return fmt.Sprintf(`(() => {
	const el = document.querySelector(%s);
	if (!el) return false;
	const value = %s;
	switch (%s) {
	case 'quill': {
		const q = el.__quill || (window.Quill && window.Quill.find && window.Quill.find(el.closest('.ql-container')));
		if (!q) return false;
		q.setText(value);
		return true;
	}
	case 'tinymce': {
		const ed = window.tinymce.get(el.id);
		if (!ed) return false;
		ed.setContent(value);
		ed.fire('change');
		return true;
	}
	case 'ckeditor': {
		const ed = el.ckeditorInstance || window.CKEDITOR.instances[el.id];
		if (!ed) return false;
		if (ed.setData) ed.setData(value);
		return true;
	}
	}
	return false;
})()`, jsArg(selector), jsArg(value), jsArg(editor))
}

// blurJS removes focus from the element.
func blurJS(selector string) string {
	return fmt.Sprintf(`(() => {
	const el = document.querySelector(%s);
	if (el && el.blur) el.blur();
	return true;
})()`, jsArg(selector))
}

// collectOptionsJS stamps and describes the choice inputs under a container.
// inputSelector picks the option elements (radio or checkbox flavors).
func collectOptionsJS(containerSel, inputSelector, tokenPrefix string) string {
	return fmt.Sprintf(`(() => {
	const root = document.querySelector(%s);
	if (!root) return null;
	const out = [];
	const els = Array.from(root.querySelectorAll(%s));
	els.forEach((el, i) => {
		let label = '';
		if (el.id) {
			const l = document.querySelector('label[for="' + CSS.escape(el.id) + '"]');
			if (l) label = l.textContent.trim();
		}
		if (!label) {
			const wrap = el.closest('label');
			if (wrap) label = wrap.textContent.trim();
		}
		if (!label) label = el.getAttribute('aria-label') || '';
		if (!label) {
			const sib = el.nextElementSibling;
			if (sib) label = sib.textContent.trim();
		}
		const tok = %s + '-' + i;
		el.setAttribute(%s, tok);
		const checked = !!el.checked || el.getAttribute('aria-checked') === 'true';
		out.push({tag: tok, label: label, value: el.value || '', checked: checked});
	});
	return out;
})()`, jsArg(containerSel), jsArg(inputSelector), jsArg(tokenPrefix), jsArg(targetAttr))
}

// selectOptionsJS describes a native select's options.
func selectOptionsJS(selector string) string {
	return fmt.Sprintf(`(() => {
	const el = document.querySelector(%s);
	if (!el || el.tagName !== 'SELECT') return null;
	return Array.from(el.options)
		.filter(o => !o.disabled)
		.map(o => ({label: o.textContent.trim(), value: o.value, checked: o.selected}));
})()`, jsArg(selector))
}

// listboxOptionsJS finds the open listbox for a combobox trigger (portal
// aware via aria-controls / aria-owns) and stamps its options.
func listboxOptionsJS(triggerSel, tokenPrefix string) string {
	return fmt.Sprintf(`(() => {
	const trigger = document.querySelector(%s);
	if (!trigger) return null;
	let box = null;
	const controls = trigger.getAttribute('aria-controls') || trigger.getAttribute('aria-owns');
	if (controls) box = document.getElementById(controls);
	if (!box) {
		for (const cand of document.querySelectorAll('[role="listbox"]')) {
			const r = cand.getBoundingClientRect();
			if (r.width > 0 && r.height > 0) { box = cand; break; }
		}
	}
	if (!box) return null;
	const out = [];
	Array.from(box.querySelectorAll('[role="option"], li')).forEach((el, i) => {
		const label = el.textContent.trim();
		if (!label) return;
		const tok = %s + '-' + i;
		el.setAttribute(%s, tok);
		out.push({tag: tok, label: label, checked: el.getAttribute('aria-selected') === 'true'});
	});
	return out;
})()`, jsArg(triggerSel), jsArg(tokenPrefix), jsArg(targetAttr))
}

// triggerTextJS reads the displayed value of a combobox trigger.
func triggerTextJS(selector string) string {
	return fmt.Sprintf(`(() => {
	const el = document.querySelector(%s);
	if (!el) return null;
	if ('value' in el && el.value) return el.value;
	return (el.textContent || '').trim();
})()`, jsArg(selector))
}

// chipTextsJS reads the rendered chips inside a chip container.
func chipTextsJS(containerSel, chipSel string) string {
	return fmt.Sprintf(`(() => {
	const root = document.querySelector(%s);
	if (!root) return null;
	return Array.from(root.querySelectorAll(%s)).map(el => (el.textContent || '').trim());
})()`, jsArg(containerSel), jsArg(chipSel))
}

// removeChipJS clicks the remove affordance of the chip whose normalized text
// matches; falls back to clicking the chip itself.
func removeChipJS(containerSel, chipSel, normalized string) string {
	return fmt.Sprintf(`(() => {
	const norm = s => (s || '').toLowerCase().replace(/\s+/g, ' ').trim();
	const root = document.querySelector(%s);
	if (!root) return false;
	for (const chip of root.querySelectorAll(%s)) {
		if (!norm(chip.textContent).includes(%s)) continue;
		const btn = chip.querySelector('button, [aria-label*="emove" i], [role="button"], .remove, svg');
		(btn || chip).dispatchEvent(new MouseEvent('click', {bubbles: true, cancelable: true}));
		return true;
	}
	return false;
})()`, jsArg(containerSel), jsArg(chipSel), jsArg(normalized))
}

// clickJS dispatches a synthetic click sequence on an element.
func clickJS(selector string) string {
	return fmt.Sprintf(`(() => {
	const el = document.querySelector(%s);
	if (!el) return false;
	el.scrollIntoView({block: 'center', inline: 'center'});
	for (const type of ['pointerdown', 'mousedown', 'pointerup', 'mouseup', 'click']) {
		el.dispatchEvent(new MouseEvent(type, {bubbles: true, cancelable: true, view: window}));
	}
	return true;
})()`, jsArg(selector))
}

// checkedJS reads the checked state of an option element.
func checkedJS(selector string) string {
	return fmt.Sprintf(`(() => {
	const el = document.querySelector(%s);
	if (!el) return null;
	return !!el.checked || el.getAttribute('aria-checked') === 'true' || el.getAttribute('aria-selected') === 'true';
})()`, jsArg(selector))
}

// textContainsJS evaluates truthy when any element matching the selector has
// text containing the normalized needle.
func textContainsJS(selector, normalizedNeedle string) string {
	return fmt.Sprintf(`Array.from(document.querySelectorAll(%s)).some(el =>
	(el.textContent || '').toLowerCase().replace(/\s+/g, ' ').includes(%s))`,
		jsArg(selector), jsArg(normalizedNeedle))
}
