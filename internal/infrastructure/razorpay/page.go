package razorpay

import "html/template"

const PageName = "razorpay_checkout"

type PageData struct {
	Options      Options
	CallbackBase string
}

const checkoutPage = `<!doctype html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Options.Name}} payment</title>
<script src="https://checkout.razorpay.com/v1/checkout.js"></script>
</head>
<body>
<script>
var opts = {{.Options}};
var base = {{.CallbackBase}};
function post(path, body) {
  return fetch(base + path, {
    method: "POST",
    headers: {"Content-Type": "application/json"},
    body: JSON.stringify(body || {})
  });
}
opts.handler = function (resp) { post("/success", resp); };
opts.modal = { ondismiss: function () { post("/dismiss"); } };
var rzp = new Razorpay(opts);
rzp.on("payment.failed", function (r) { post("/failure", r.error); });
rzp.open();
</script>
</body>
</html>
`

func PageTemplate() *template.Template {
	return template.Must(template.New(PageName).Parse(checkoutPage))
}
