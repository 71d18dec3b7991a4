package detectionHandler

import "github.com/gofiber/fiber/v2"

func (h *DetectionHandler) Page(ctx *fiber.Ctx) error {
	ctx.Type("html", "utf-8")
	return ctx.SendString(indexHTML)
}

const indexHTML = `<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <title>HAWK-VISION 2.0</title>
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <style>
        body { font-family: sans-serif; background: #111; color: #eee; }
        .container { max-width: 960px; margin: 0 auto; padding: 24px; }
        .dropzone { border: 2px dashed #666; border-radius: 8px; padding: 40px; text-align: center; cursor: pointer; }
        .dropzone.active { border-color: #e33; background: #2a1111; }
        .error-message { background: #611; padding: 10px; margin-top: 16px; border-radius: 4px; }
        .loading { margin-top: 16px; color: #aaa; }
        .preview-container { position: relative; display: inline-block; margin-top: 16px; }
        .preview-image { max-width: 100%; display: block; }
        .box { position: absolute; border: 2px solid red; box-sizing: border-box; pointer-events: none; }
        .box span { position: absolute; top: -18px; background: red; color: white; font-size: 12px; padding: 1px 4px; border-radius: 2px; white-space: nowrap; }
        .hidden { display: none; }
    </style>
</head>
<body>
<div class="container">
    <h1>HAWK-VISION 2.0</h1>
    <div id="dropzone" class="dropzone">
        <input id="file-input" type="file" accept="image/jpeg,image/png,.jpeg,.jpg,.png" class="hidden">
        <p id="dropzone-text">Drag &amp; drop an image, or click to select</p>
    </div>

    <div id="error" class="error-message hidden"></div>
    <div id="loading" class="loading hidden">Processing image...</div>

    <div id="preview" class="preview-container hidden">
        <img id="preview-image" class="preview-image" alt="Preview">
        <div id="boxes"></div>
    </div>

    <div id="summary" class="results-summary hidden">
        <h3 id="summary-heading"></h3>
        <ul id="summary-lines"></ul>
    </div>
</div>
<script>
(function () {
    const api = '/api/v1/detection';
    const accepted = ['.jpeg', '.jpg', '.png'];
    const zone = document.getElementById('dropzone');
    const input = document.getElementById('file-input');
    const img = document.getElementById('preview-image');
    let state = null;

    function show(id, on) { document.getElementById(id).classList.toggle('hidden', !on); }

    function upload(files) {
        const file = files && files[0];
        if (!file) return;
        const name = file.name.toLowerCase();
        if (!accepted.some(ext => name.endsWith(ext))) return;
        const form = new FormData();
        form.append('file', file);
        fetch(api + '/upload', { method: 'POST', body: form, credentials: 'same-origin' })
            .then(r => r.status === 202 || r.status === 200 ? r.json().then(render) : null)
            .catch(err => console.error('upload failed', err));
    }

    function drawBoxes() {
        const layer = document.getElementById('boxes');
        layer.innerHTML = '';
        if (!state || !state.preview_url || state.predictions.length === 0) return;
        if (!img.complete || img.clientWidth === 0) return;
        const q = '?width=' + img.clientWidth + '&height=' + img.clientHeight;
        fetch(api + '/overlay' + q, { credentials: 'same-origin' }).then(r => r.json()).then(resp => {
            if (!state || resp.request_id !== state.request_id) return;
            layer.innerHTML = '';
            resp.boxes.forEach(b => {
                const el = document.createElement('div');
                el.className = 'box';
                el.style.left = b.left + 'px';
                el.style.top = b.top + 'px';
                el.style.width = b.width + 'px';
                el.style.height = b.height + 'px';
                const label = document.createElement('span');
                label.textContent = b.text;
                el.appendChild(label);
                layer.appendChild(el);
            });
        });
    }

    function drawSummary() {
        show('summary', false);
        if (!state || state.predictions.length === 0) return;
        fetch(api + '/summary', { credentials: 'same-origin' }).then(r => r.json()).then(resp => {
            if (!state || resp.request_id !== state.request_id) return;
            document.getElementById('summary-heading').textContent = resp.heading;
            const list = document.getElementById('summary-lines');
            list.innerHTML = '';
            resp.text.forEach(t => {
                const li = document.createElement('li');
                li.textContent = t;
                list.appendChild(li);
            });
            show('summary', true);
        });
    }

    function render(next) {
        state = next;
        const err = document.getElementById('error');
        err.textContent = state.error || '';
        show('error', !!state.error);
        show('loading', state.loading);
        show('preview', !!state.preview_url);
        if (state.preview_url && img.getAttribute('src') !== state.preview_url) {
            img.setAttribute('src', state.preview_url);
        }
        drawBoxes();
        drawSummary();
    }

    function connect() {
        const proto = location.protocol === 'https:' ? 'wss://' : 'ws://';
        const ws = new WebSocket(proto + location.host + api + '/ws');
        ws.onmessage = ev => {
            const msg = JSON.parse(ev.data);
            if (msg.type === 'state') render(msg.state);
        };
        ws.onclose = () => setTimeout(connect, 2000);
    }

    zone.addEventListener('click', () => input.click());
    input.addEventListener('change', () => upload(input.files));
    zone.addEventListener('dragover', e => { e.preventDefault(); zone.classList.add('active'); document.getElementById('dropzone-text').textContent = 'Drop the image here...'; });
    zone.addEventListener('dragleave', () => { zone.classList.remove('active'); document.getElementById('dropzone-text').textContent = 'Drag & drop an image, or click to select'; });
    zone.addEventListener('drop', e => {
        e.preventDefault();
        zone.classList.remove('active');
        document.getElementById('dropzone-text').textContent = 'Drag & drop an image, or click to select';
        upload(e.dataTransfer.files);
    });
    img.addEventListener('load', drawBoxes);
    window.addEventListener('resize', drawBoxes);

    fetch(api + '/state', { credentials: 'same-origin' }).then(r => r.json()).then(render);
    connect();
})();
</script>
</body>
</html>
`
