package detector

// Extraction scripts run against the loaded page. Each reads the static DOM
// snapshot only and must not mutate page state, so the four queries can be
// issued concurrently.

// fieldsScript enumerates visible, named input elements with their label text.
const fieldsScript = `
(() => {
	function getLabel(elem) {
		if (elem.name) {
			const labelFor = document.querySelector('label[for="' + elem.name + '"]');
			if (labelFor) return labelFor.textContent.trim();
		}
		let parent = elem.parentElement;
		while (parent && parent.tagName !== 'FORM') {
			if (parent.tagName === 'LABEL') {
				return parent.textContent.trim();
			}
			parent = parent.parentElement;
		}
		return '';
	}

	const elements = document.querySelectorAll('input,textarea,select');
	const result = [];
	for (const elem of elements) {
		if (elem.offsetParent === null || elem.disabled) {
			continue;
		}
		const name = elem.getAttribute('name');
		if (!name) continue;

		const tag = elem.tagName.toLowerCase();
		result.push({
			tagName: tag,
			type: elem.getAttribute('type') || (tag === 'input' ? 'text' : tag),
			name: name,
			placeholder: elem.getAttribute('placeholder') || '',
			required: elem.hasAttribute('required'),
			label: getLabel(elem)
		});
	}
	return result;
})()`

// captchaScript probes for the known CAPTCHA markers in one pass.
const captchaScript = `
(() => ({
	hasRecaptchaV2: document.querySelector('[data-sitekey]') !== null,
	hasHcaptcha: document.querySelector('.h-captcha') !== null,
	hasCloudflare: document.querySelector('.cf-turnstile') !== null,
	hasRecaptchaV3: Array.from(document.scripts).some(s =>
		s.src.includes('recaptcha') && s.src.includes('v3')
	)
}))()`

// submitScript tries the common submit selectors in order, then falls back
// to scanning button text against a small multilingual set.
const submitScript = `
(() => {
	const selectors = [
		"button[type='submit']",
		"input[type='submit']",
		"button.submit",
		"button.btn-primary",
		"a.btn-submit",
	];
	for (const selector of selectors) {
		if (document.querySelector(selector)) {
			return selector;
		}
	}

	const buttons = document.querySelectorAll('button');
	for (const btn of buttons) {
		const text = btn.textContent.toLowerCase().trim();
		if (text === 'submit' || text === 'absenden' || text === 'senden') {
			return 'button[type="submit"]:not([disabled])';
		}
	}

	return '';
})()`

// multistepScript checks for progress/step markers and next buttons.
const multistepScript = `
(() => {
	if (document.querySelector("[class*='progress']")) return true;
	if (document.querySelector("[class*='step']")) return true;

	const buttons = document.querySelectorAll('button');
	for (const btn of buttons) {
		const text = btn.textContent.trim().toLowerCase();
		if (text === 'next' || text === 'weiter') {
			return true;
		}
	}
	return false;
})()`
