package serialmux

const sendCommandHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>serial console</title>
<style>
body { font-family: monospace; margin: 1em; }
#log { height: 70vh; overflow-y: scroll; border: 1px solid #ccc; padding: 0.5em; white-space: pre; }
form { margin-bottom: 1em; }
</style>
</head>
<body>
<form id="cmd" method="post" action="send-command-api">
<input name="command" size="40" placeholder="F 1000.00" autofocus>
<button type="submit">Send</button>
<span id="status"></span>
</form>
<div id="log"></div>
<script src="tail.js"></script>
</body>
</html>
`

const tailJS = `(function () {
  var log = document.getElementById("log");
  var status = document.getElementById("status");
  var form = document.getElementById("cmd");

  function append(line) {
    log.textContent += line + "\n";
    if (log.textContent.length > 200000) {
      log.textContent = log.textContent.slice(-100000);
    }
    log.scrollTop = log.scrollHeight;
  }

  var source = new EventSource("tail");
  source.onmessage = function (e) { append(e.data); };
  source.onerror = function () { status.textContent = "stream disconnected"; };

  form.addEventListener("submit", function (e) {
    e.preventDefault();
    fetch(form.action, { method: "POST", body: new FormData(form) })
      .then(function (r) { return r.text(); })
      .then(function (t) { status.textContent = t; })
      .catch(function (err) { status.textContent = String(err); });
  });
})();
`
